package chat

// User is a logged-in receiver and the mailbox its deliveries queue in.
type User struct {
	Name    string
	mailbox *Mailbox
}

func NewUser(name string) *User {
	return &User{Name: name, mailbox: NewMailbox()}
}

func (u *User) Mailbox() *Mailbox { return u.mailbox }

// Release drops any undelivered messages. Rooms must no longer reference u.
func (u *User) Release() int {
	return u.mailbox.Close()
}
