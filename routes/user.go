package routes

import (
	"errors"
	"strings"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/golog"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Signup(ctx iris.Context) {
	var userInput SignupInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !models.IsSignupRole(userInput.Role) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid role", ctx)
		return
	}

	var existing models.Profile
	userExists, userExistsErr := getAndHandleUserExists(&existing, userInput.Email)
	if userExistsErr != nil {
		utils.InternalError(ctx, userExistsErr)
		return
	}
	if userExists {
		utils.CreateEmailAlreadyRegistered(ctx)
		return
	}

	phone := utils.NormalizePhoneNumber(userInput.Phone)
	banned, err := phoneIsBanned(phone)
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}
	if banned {
		utils.CreateError(iris.StatusForbidden, "Forbidden", "This phone number has been banned", ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(userInput.Password)
	if hashErr != nil {
		utils.InternalError(ctx, hashErr)
		return
	}

	newUser := models.Profile{
		Email:        strings.ToLower(strings.TrimSpace(userInput.Email)),
		PhoneNumber:  phone,
		FullName:     strings.TrimSpace(userInput.FullName),
		Role:         userInput.Role,
		PasswordHash: hashedPassword,
	}

	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newUser).Error; err != nil {
			return err
		}
		if newUser.Role == models.RoleHomeowner {
			return tx.Create(&models.ListingAllowance{UserID: newUser.ID, FreeListings: 1}).Error
		}
		return nil
	})
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}

	golog.Infof("new %s signed up: %s", newUser.Role, newUser.ID)
	ctx.StatusCode(iris.StatusCreated)
	returnUser(newUser, ctx)
}

func Login(ctx iris.Context) {
	var userInput LoginUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var existingUser models.Profile
	errorMsg := "Invalid email or password."
	userExists, userExistsErr := getAndHandleUserExists(&existingUser, userInput.Email)
	if userExistsErr != nil {
		utils.InternalError(ctx, userExistsErr)
		return
	}
	if !userExists {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(existingUser.PasswordHash), []byte(userInput.Password))
	if passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	var bans int64
	if err := storage.DB.Model(&models.BanEntry{}).Where("user_id = ?", existingUser.ID).Count(&bans).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	if bans > 0 {
		utils.CreateError(iris.StatusForbidden, "Forbidden", "Account is banned", ctx)
		return
	}

	returnUser(existingUser, ctx)
}

// RefreshToken swaps a live refresh token for a new pair. The old refresh
// token is revoked.
func RefreshToken(ctx iris.Context) {
	verified := jwt.GetVerifiedToken(ctx)
	claims, ok := jwt.Get(ctx).(*jwt.Claims)
	if verified == nil || !ok || claims.Subject == "" {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Invalid refresh token", ctx)
		return
	}

	if !utils.ConsumeRefreshToken(ctx.Request().Context(), string(verified.Token)) {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Refresh token revoked", ctx)
		return
	}

	user := getUserByID(claims.Subject, ctx)
	if user == nil {
		return
	}

	tokenPair, err := utils.CreateTokenPair(ctx.Request().Context(), user.ID, user.Role)
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}
	ctx.JSON(tokenPair)
}

func GetMe(ctx iris.Context) {
	user := getUserByID(ctx.Values().GetString("userID"), ctx)
	if user == nil {
		return
	}
	ctx.JSON(user)
}

func getAndHandleUserExists(user *models.Profile, email string) (exists bool, err error) {
	err = storage.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Limit(1).Find(user).Error
	if err != nil {
		return false, err
	}
	return user.ID != "", nil
}

func phoneIsBanned(phone string) (bool, error) {
	if phone == "" {
		return false, nil
	}
	var n int64
	err := storage.DB.Model(&models.BanEntry{}).Where("phone_number = ?", phone).Count(&n).Error
	return n > 0, err
}

func hashAndSaltPassword(password string) (hashedPassword string, err error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return
	}
	return string(bytes), nil
}

// getUserByID answers 404/500 itself and returns nil in that case.
func getUserByID(id string, ctx iris.Context) *models.Profile {
	var user models.Profile
	err := storage.DB.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.CreateError(iris.StatusNotFound, "Not Found", "User not found", ctx)
		return nil
	}
	if err != nil {
		utils.InternalError(ctx, err)
		return nil
	}
	return &user
}

func returnUser(user models.Profile, ctx iris.Context) {
	tokenPair, tokenErr := utils.CreateTokenPair(ctx.Request().Context(), user.ID, user.Role)
	if tokenErr != nil {
		utils.InternalError(ctx, tokenErr)
		return
	}

	ctx.JSON(iris.Map{
		"user":          user,
		"access_token":  tokenPair.AccessToken,
		"refresh_token": tokenPair.RefreshToken,
	})
}

type SignupInput struct {
	Email    string `json:"email" validate:"required,max=256,email"`
	Password string `json:"password" validate:"required,min=6,max=256"`
	Phone    string `json:"phone" validate:"required,max=20"`
	Role     string `json:"role" validate:"required"`
	FullName string `json:"full_name" validate:"required,max=256"`
}

type LoginUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
