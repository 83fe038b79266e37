package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vsbridge/internal/domain"
	customersvc "vsbridge/internal/service/customer"
)

var errNotSignedIn = &domain.Error{Kind: domain.ErrNotAuthorized, Msg: "User is not authorized to access self"}

// customerID returns the customer of the access token and writes the failure itself.
func (h *handlers) customerID(c *gin.Context) (string, bool) {
	id, err := h.identity(c)
	if err != nil || id.CustomerID == nil {
		fail(c, errNotSignedIn)
		return "", false
	}
	return *id.CustomerID, true
}

func session(c *gin.Context, s *customersvc.Session) {
	okWithMeta(c, s.Token, gin.H{"refreshToken": s.RefreshToken})
}

func (h *handlers) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errNoJSON)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		fail(c, customersvc.ErrInvalidCredentials)
		return
	}
	s, err := h.deps.Customers.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	session(c, s)
}

func (h *handlers) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errNoJSON)
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		fail(c, domain.Validationf("No refresh token provided"))
		return
	}
	s, err := h.deps.Customers.Refresh(c.Request.Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		fail(c, err)
		return
	}
	session(c, s)
}

func (h *handlers) resetPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errNoJSON)
		return
	}
	if err := h.deps.Customers.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Reset password email sent.")
}

func (h *handlers) createPassword(c *gin.Context) {
	var req struct {
		ResetToken  string `json:"resetToken" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.Validationf("No reset token or new password provided"))
		return
	}
	if err := h.deps.Customers.ResetPassword(c.Request.Context(), req.ResetToken, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	ok(c, "New password set for the customer")
}

func (h *handlers) changePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errNoJSON)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		fail(c, domain.Validationf("No current and new passwords provided!"))
		return
	}
	customerID, found := h.customerID(c)
	if !found {
		return
	}
	if err := h.deps.Customers.ChangePassword(c.Request.Context(), customerID, req.CurrentPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	ok(c, "New password set for the customer")
}

type customerRequest struct {
	Email     string           `json:"email"`
	Firstname string           `json:"firstname"`
	Lastname  string           `json:"lastname"`
	Addresses []domain.Address `json:"addresses"`
}

func (h *handlers) userCreate(c *gin.Context) {
	var req struct {
		Customer *customerRequest `json:"customer"`
		Password string           `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errNoJSON)
		return
	}
	if req.Customer == nil || req.Customer.Email == "" || req.Password == "" {
		fail(c, domain.Validationf("No customer data or password provided!"))
		return
	}
	customer, err := h.deps.Customers.Create(c.Request.Context(), currentStore(c), customersvc.CreateInput{
		Email:     req.Customer.Email,
		Password:  req.Password,
		Firstname: req.Customer.Firstname,
		Lastname:  req.Customer.Lastname,
		Addresses: req.Customer.Addresses,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, customer)
}

// me reads the profile on GET and updates it on POST.
func (h *handlers) me(c *gin.Context) {
	customerID, found := h.customerID(c)
	if !found {
		return
	}
	if c.Request.Method == http.MethodGet {
		customer, err := h.deps.Customers.Me(c.Request.Context(), customerID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, customer)
		return
	}

	var req struct {
		Customer *customerRequest `json:"customer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errNoJSON)
		return
	}
	if req.Customer == nil {
		fail(c, domain.Validationf("No customer data provided!"))
		return
	}
	customer, err := h.deps.Customers.Update(c.Request.Context(), customerID, customersvc.UpdateInput{
		Email:     req.Customer.Email,
		Firstname: req.Customer.Firstname,
		Lastname:  req.Customer.Lastname,
		Addresses: req.Customer.Addresses,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, customer)
}
