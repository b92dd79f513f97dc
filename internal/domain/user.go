package domain

// Role identifies who a profile belongs to. The app only signs in students'
// guardians today, but profiles carry the role so that can change.
type Role string

const (
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleParent:
		return true
	}
	return false
}

// User is the profile returned by a successful login. It is replaced as a
// whole on each login and never mutated in place.
type User struct {
	ID         string
	Name       string
	Role       Role
	Class      string
	Division   string
	RollNumber string
	PhotoURL   string
	ParentName string
	Mobile     string
}

// Clone returns an independent copy of u, or nil when u is nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// DemoStudent is the profile the demo backend and the offline mock hand out.
func DemoStudent() User {
	return User{
		ID:         "STU12345",
		Name:       "Aarav Patel",
		Role:       RoleStudent,
		Class:      "Sr. KG",
		Division:   "A",
		RollNumber: "12",
		PhotoURL:   "https://cdn-icons-png.flaticon.com/512/201/201634.png",
		ParentName: "Rajesh Patel",
		Mobile:     "9876543210",
	}
}
