package models

import "strings"

// User, CMS'ten gelen kullanıcı profili.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Blocked   bool   `json:"blocked"`
	Confirmed bool   `json:"confirmed"`
}

// HasRole, rol adını büyük/küçük harf duyarsız karşılaştırır.
func (u User) HasRole(name string) bool {
	return name != "" && strings.EqualFold(u.Role, name)
}

// Session, bearer token ve profil.
type Session struct {
	Token string `json:"-"`
	User  *User  `json:"user"`
}

// Preferences, arayüz tercihleri.
type Preferences struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
}
