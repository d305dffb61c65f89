package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID    string `db:"id" json:"id"`
	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`
	Phone string `db:"phone" json:"phone"`
	Hash  string `db:"password_hash" json:"-"`
	Role  string `db:"role" json:"role"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

type Address struct {
	ID         string `db:"id" json:"id"`
	UserID     string `db:"user_id" json:"-"`
	Label      string `db:"label" json:"label"`
	FullName   string `db:"full_name" json:"fullName"`
	Phone      string `db:"phone" json:"phone"`
	Line1      string `db:"line1" json:"line1"`
	Line2      string `db:"line2" json:"line2"`
	City       string `db:"city" json:"city"`
	State      string `db:"state" json:"state"`
	PostalCode string `db:"postal_code" json:"postalCode"`
	Country    string `db:"country" json:"country"`
	IsDefault  bool   `db:"is_default" json:"isDefault"`
	CreatedAt  string `db:"created_at" json:"createdAt"`
	UpdatedAt  string `db:"updated_at" json:"updatedAt"`
}
