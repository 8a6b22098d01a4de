package statestore

// StateInfo is the unit persisted per object instance: one recorded
// transition. The JSON field names and casing are part of the storage
// contract and must round-trip exactly against previously stored data.
type StateInfo struct {
	StateOld        string         `json:"state_old"`
	StateCurrent    string         `json:"state_current"`
	ObjectTag       string         `json:"object_tag"`
	DefTag          string         `json:"def_tag"`
	TransitionTSUTC string         `json:"transition_ts_utc"`
	ServerCtx       any            `json:"server_ctx"`
	UserCtx         map[string]any `json:"user_ctx"`
	IsForced        bool           `json:"is_forced"`
}

// Clone returns a copy of the record with its own user context map. ServerCtx
// is opaque to the engine and is shared, not copied.
func (s *StateInfo) Clone() *StateInfo {
	out := *s
	if s.UserCtx != nil {
		out.UserCtx = make(map[string]any, len(s.UserCtx))
		for k, v := range s.UserCtx {
			out.UserCtx[k] = v
		}
	}
	return &out
}
