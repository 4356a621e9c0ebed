package session

// Session is one live participant record. MemberId starts as a
// connection-scoped temporary id and is promoted to the stable identity hash
// on authentication.
type Session struct {
	MemberId        string
	Nickname        string
	Email           string
	AvatarURL       *string
	IsAdmin         bool
	IsMuted         bool
	IsReady         bool
	IsAuthenticated bool
}
