package domain

// Member is what a room remembers about one joined connection.
// User is the identity the connection carried when it joined.
type Member struct {
	Conn ConnectionID
	User UserID
}

func NewMember(conn ConnectionID, user UserID) *Member {
	return &Member{Conn: conn, User: user}
}
