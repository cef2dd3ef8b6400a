package validate

// LoginForm is submitted on /login.
type LoginForm struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,pwlen"`
}

// RegisterForm is submitted on /register.
type RegisterForm struct {
	Name            string `json:"name" form:"name" validate:"notblank"`
	Phone           string `json:"phone" form:"phone" validate:"required,bdphone"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required,pwlen"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"required,eqfield=Password"`
}

// TopUpForm is submitted on /add-money.
type TopUpForm struct {
	Amount        int64  `json:"amount" form:"amount" validate:"gt=0"`
	SenderNumber  string `json:"senderNumber" form:"senderNumber" validate:"required,bdphone"`
	TransactionID string `json:"transactionId" form:"transactionId" validate:"notblank"`
}

// OrderForm is submitted from a service detail page.
type OrderForm struct {
	Option       string `json:"option" form:"option" validate:"notblank"`
	TargetNumber string `json:"targetNumber" form:"targetNumber" validate:"notblank"`
	Email        string `json:"email" form:"email" validate:"required,email"`
}

// ProfileForm edits the signed-in user's own profile.  The password part
// is optional; when NewPassword is set the current one is required too.
type ProfileForm struct {
	Name               string `json:"name" form:"name" validate:"notblank"`
	Phone              string `json:"phone" form:"phone" validate:"required,bdphone"`
	Email              string `json:"email" form:"email" validate:"required,email"`
	CurrentPassword    string `json:"password" form:"password" validate:"required_with=NewPassword"`
	NewPassword        string `json:"newPassword" form:"newPassword" validate:"omitempty,min=6"`
	ConfirmNewPassword string `json:"confirmNewPassword" form:"confirmNewPassword" validate:"eqfield=NewPassword"`
}

// AdminUserForm is the admin edit-user form.  An empty Password leaves the
// stored password alone.
type AdminUserForm struct {
	Name     string `json:"name" form:"name" validate:"notblank"`
	Phone    string `json:"phone" form:"phone" validate:"required,bdphone"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Balance  int64  `json:"balance" form:"balance" validate:"gte=0"`
	Password string `json:"password" form:"password" validate:"omitempty,pwlen"`
}

// ServiceOptionForm is one priced option of a ServiceForm.
type ServiceOptionForm struct {
	Name  string `json:"name" validate:"notblank"`
	Price int64  `json:"price" validate:"gt=0"`
}

// ServiceForm creates or replaces a catalog entry.
type ServiceForm struct {
	Title       string              `json:"title" validate:"notblank"`
	Description string              `json:"description" validate:"notblank"`
	Category    string              `json:"category"`
	Options     []ServiceOptionForm `json:"options" validate:"min=1,dive"`
}
