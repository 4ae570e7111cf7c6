package user

import "time"

type User struct {
	ID               int64     `gorm:"primaryKey"`
	Email            string    `gorm:"column:email;uniqueIndex;not null"`
	FirstName        string    `gorm:"column:first_name"`
	LastName         string    `gorm:"column:last_name"`
	PasswordHash     string    `gorm:"column:password_hash"`
	Role             string    `gorm:"column:role;not null;default:employee"`
	ManagerFirstName string    `gorm:"column:manager_first_name"`
	ManagerLastName  string    `gorm:"column:manager_last_name"`
	ManagerEmail     string    `gorm:"column:manager_email;index"`
	ProfileComplete  bool      `gorm:"column:profile_complete;default:false"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// FullName joins the name parts, falling back to the email when both are empty.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Email
	}
}
