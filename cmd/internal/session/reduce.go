package session

// Reduce returns the session that results from applying a to s. It has no side effects;
// unknown action types return s unchanged.
func Reduce(s Session, a Action) Session {
	switch a.Type {
	case ActionSetUserData:
		s.User = cloneUser(a.User)
	case ActionSetTokens:
		s.AccessToken = a.Tokens.AccessToken
		s.RefreshToken = a.Tokens.RefreshToken
	case ActionRemoveTokens:
		s.AccessToken = ""
		s.RefreshToken = ""
	}
	return s
}

func cloneUser(u *UserProfile) *UserProfile {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
