package entity

// AdminCredential is one row of the admin tab.
type AdminCredential struct {
	Email    string `json:"email"`
	Password string `json:"-"`
	RowNum   int    `json:"-"`
}
