package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/cache"
	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/models"
	"github.com/astrocyte/PSOLOMON/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// jwtIssuer 写入并校验 iss 声明，拒绝来路不明的 Token
const jwtIssuer = "psolomon-admin"

// JWTClaims JWT 声明
// TokenVersion 绑定签发时的账号版本，吊销后旧 Token 立即失效
type JWTClaims struct {
	AdminID      uint   `json:"admin_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// AuthService 运营后台认证服务
// 负责密码哈希、登录校验与 JWT 签发吊销
type AuthService struct {
	cfg       *config.Config
	adminRepo repository.AdminRepository
	now       func() time.Time
}

// NewAuthService 组装认证服务
func NewAuthService(cfg *config.Config, adminRepo repository.AdminRepository) *AuthService {
	return &AuthService{cfg: cfg, adminRepo: adminRepo, now: time.Now}
}

// HashPassword 生成密码的 bcrypt 散列
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// VerifyPassword 比对明文密码与散列
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword 按口令策略检查新密码强度
func (s *AuthService) ValidatePassword(password string) error {
	if s == nil || s.cfg == nil {
		return nil
	}
	return validatePassword(s.cfg.Security.PasswordPolicy, password)
}

func (s *AuthService) tokenTTL() time.Duration {
	return time.Duration(s.cfg.JWT.ExpireHours) * time.Hour
}

// GenerateJWT 为管理员签发 JWT
func (s *AuthService) GenerateJWT(admin *models.Admin) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.tokenTTL())

	claims := JWTClaims{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			Subject:   strconv.FormatUint(uint64(admin.ID), 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAdminToken 解析并校验管理端 JWT
// 只接受 HS256 且签发方匹配的 Token，过期或伪造均返回错误
func ParseAdminToken(secretKey, tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jwtIssuer),
	)
	claims := &JWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.AdminID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	return ParseAdminToken(s.cfg.JWT.SecretKey, tokenString)
}

// authenticate 核对账号密码并确认账号可登录
// 账号不存在与密码错误同样返回 ErrInvalidCredentials，不泄露账号是否存在
func (s *AuthService) authenticate(username, password string) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(admin.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !admin.CanLogin() {
		return nil, ErrAdminDisabled
	}
	return admin, nil
}

// refreshAuthCache 把最新登录态写入缓存，缓存不可用时静默降级到查库
func refreshAuthCache(admin *models.Admin) {
	_ = cache.SetAdminAuthState(context.Background(), cache.BuildAdminAuthState(admin))
}

// Login 账号密码登录，成功后签发 JWT 并刷新登录态缓存
func (s *AuthService) Login(username, password string) (*models.Admin, string, time.Time, error) {
	admin, err := s.authenticate(username, password)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	token, expiresAt, err := s.GenerateJWT(admin)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	// 登录只写时间戳列，避免整行 Save 覆盖并发的吊销操作
	loginAt := s.now()
	admin.TouchLogin(loginAt)
	if err := s.adminRepo.UpdateFields(admin.ID, map[string]interface{}{"last_login_at": loginAt}); err != nil {
		return nil, "", time.Time{}, err
	}
	refreshAuthCache(admin)

	return admin, token, expiresAt, nil
}

// ChangePassword 修改管理员密码
// 成功后吊销全部已签发 Token，强制重新登录
func (s *AuthService) ChangePassword(adminID uint, oldPassword, newPassword string) error {
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrNotFound
	}
	if err := s.VerifyPassword(admin.PasswordHash, oldPassword); err != nil {
		return ErrInvalidPassword
	}
	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}
	admin.PasswordHash = hash
	admin.RevokeIssuedTokens(s.now())
	if err := s.adminRepo.Update(admin); err != nil {
		return err
	}
	refreshAuthCache(admin)
	return nil
}
