package entities

// Role is the access level of a signed-in user.
type Role string

const (
	RolePatient Role = "patient"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Identity is the resolved session of the caller. A nil *Identity means an
// anonymous caller.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// IsStaff reports whether the identity may act on bookings and emergencies.
func (i *Identity) IsStaff() bool {
	return i != nil && (i.Role == RoleStaff || i.Role == RoleAdmin)
}

// UserIDPtr returns the user id for nullable columns.
func (i *Identity) UserIDPtr() *string {
	if i == nil || i.UserID == "" {
		return nil
	}
	id := i.UserID
	return &id
}
