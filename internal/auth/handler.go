package auth

import (
	"errors"
	"strings"

	"khomypham-backend/internal/config"
	"khomypham-backend/internal/database"
	"khomypham-backend/internal/models"
	"khomypham-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterAdminRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CreateUserRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role" validate:"omitempty,oneof=admin staff"`
	Phone    string          `json:"phone" validate:"max=15"`
	Address  string          `json:"address"`
}

type UserResponse struct {
	ID      uint            `json:"id"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Role    models.UserRole `json:"role"`
	Phone   string          `json:"phone"`
	Address string          `json:"address"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role,
		Phone:   u.Phone,
		Address: u.Address,
	}
}

// POST /api/auth/register-admin
// Chỉ dùng được khi hệ thống chưa có admin nào
func RegisterAdminHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var count int64
		if err := database.DB.Model(&models.User{}).
			Where("role = ?", models.RoleAdmin).
			Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không kiểm tra được tài khoản quản trị")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "Hệ thống đã có quản trị viên")
		}

		user, err := createUser(body.Name, body.Email, body.Password, models.RoleAdmin, "", "")
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(*user))
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Email hoặc mật khẩu không đúng")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Email hoặc mật khẩu không đúng")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không tạo được token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  toUserResponse(user),
		})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := CurrentUser(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := database.DB.First(&user, actor.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Không tìm thấy người dùng")
		}
		return c.JSON(toUserResponse(user))
	}
}

// POST /api/admin/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if body.Role == "" {
			body.Role = models.RoleStaff
		}
		email := strings.TrimSpace(strings.ToLower(body.Email))

		user, err := createUser(strings.TrimSpace(body.Name), email, body.Password, body.Role, body.Phone, body.Address)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(*user))
	}
}

// GET /api/admin/users
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("name asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Không lấy được danh sách người dùng")
		}

		res := make([]UserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, toUserResponse(u))
		}
		return c.JSON(res)
	}
}

func createUser(name, email, password string, role models.UserRole, phone, address string) (*models.User, error) {
	var existing models.User
	err := database.DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, fiber.NewError(fiber.StatusConflict, "Email đã được sử dụng")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Không kiểm tra được email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Không mã hóa được mật khẩu")
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Phone:        phone,
		Address:      address,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Không tạo được người dùng")
	}
	return &user, nil
}
