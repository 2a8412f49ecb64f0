package model

// Identity は呼び出し元の解決済みの身元。
// ログイン済みなら UserID、未ログインなら GuestToken（無ければ両方空）。
type Identity struct {
	UserID     *int64
	GuestToken string
}

func (i Identity) IsAuthenticated() bool {
	return i.UserID != nil && *i.UserID > 0
}

func (i Identity) IsGuest() bool {
	return !i.IsAuthenticated()
}
