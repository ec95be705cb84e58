package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/yeremiapane/canteenkart/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

type AuthService struct {
	DB *gorm.DB
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{DB: db}
}

type RegisterInput struct {
	Phone           string
	Name            string
	Password        string
	ConfirmPassword string
}

// Register creates a student account with an empty wallet. The name
// defaults to the phone number.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	phone := strings.TrimSpace(in.Phone)
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidPhone
	}
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = phone
	}

	return s.createUser(ctx, phone, name, in.Password, models.RoleStudent)
}

func (s *AuthService) createUser(ctx context.Context, phone, name, password, role string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{Phone: phone, Name: name, Role: role, PasswordHash: string(hash)}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("phone = ?", phone).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrPhoneTaken
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Wallet{UserID: user.ID, Balance: 0}).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, phone, password string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("phone = ?", strings.TrimSpace(phone)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// EnsureOwner creates the bootstrap owner account when no user has the
// phone yet. It reports whether a user was created.
func (s *AuthService) EnsureOwner(ctx context.Context, phone, name, password string) (*models.User, bool, error) {
	var existing models.User
	err := s.DB.WithContext(ctx).Where("phone = ?", phone).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if name == "" {
		name = "Owner"
	}
	user, err := s.createUser(ctx, phone, name, password, models.RoleOwner)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Preload("Wallet").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the display name and optional email. Changing the
// email clears its verified flag.
func (s *AuthService) UpdateProfile(ctx context.Context, id uint, name, email string) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if n := strings.TrimSpace(name); n != "" {
		user.Name = n
	}
	email = strings.TrimSpace(strings.ToLower(email))
	current := ""
	if user.Email != nil {
		current = *user.Email
	}
	if email != current {
		if email == "" {
			user.Email = nil
		} else {
			user.Email = &email
		}
		user.EmailVerified = false
	}
	err = s.DB.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"name":           user.Name,
		"email":          user.Email,
		"email_verified": user.EmailVerified,
	}).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SetEmailVerified is used by the owner after checking a student's campus email.
func (s *AuthService) SetEmailVerified(ctx context.Context, id uint, verified bool) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if verified && (user.Email == nil || *user.Email == "") {
		return &CustomError{"User has no email to verify"}
	}
	return s.DB.WithContext(ctx).Model(user).Update("email_verified", verified).Error
}
