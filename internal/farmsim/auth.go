package farmsim

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const userKey = "username"

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

var errUserExists = errors.New("That username already exists. Please choose a different one.")

func validateCredentials(c credentials) error {
	if n := len(c.Username); n < 4 || n > 20 {
		return errors.New("Username must be 4 to 20 characters.")
	}
	if n := len(c.Password); n < 8 || n > 20 {
		return errors.New("Password must be 8 to 20 characters.")
	}
	return nil
}

// Register stores a new user with a bcrypt password hash.
func (s *Server) Register(username, password string) error {
	if err := validateCredentials(credentials{username, password}); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return errUserExists
	}
	s.users[username] = hash
	return nil
}

func (s *Server) handleRegister(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid input"})
		return
	}
	switch err := s.Register(in.Username, in.Password); {
	case errors.Is(err, errUserExists):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		s.logger.Info("user registered", "username", in.Username)
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
	}
}

func (s *Server) handleLogin(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	s.mu.Lock()
	hash, ok := s.users[in.Username]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(in.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
		return
	}

	token, err := s.issueToken(in.Username)
	if err != nil {
		s.logger.Error("sign token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error generating token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) issueToken(username string) (string, error) {
	now := s.cfg.Now()
	claims := jwt.StandardClaims{
		Subject:   username,
		Id:        uuid.NewString(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.cfg.TokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
}

func (s *Server) parseToken(raw string) (*jwt.StandardClaims, error) {
	claims := &jwt.StandardClaims{}
	parser := jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	// Expiry is checked against the simulator clock, not the wall clock.
	if !claims.VerifyExpiresAt(s.cfg.Now().Unix(), true) {
		return nil, errors.New("token expired")
	}
	return claims, nil
}

// requireToken validates the bearer token and stores the username in the
// gin context.
func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing Authorization Header"})
			return
		}
		claims, err := s.parseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}
		c.Set(userKey, claims.Subject)
		c.Next()
	}
}
