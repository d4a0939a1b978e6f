package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/coocood/freecache"
)

// OTPStore keeps short-lived verification codes keyed by normalized
// email. The store is process-local and lost on restart, which is
// acceptable: entries are short-TTL and re-derivable by resending.
type OTPStore struct {
	cache *freecache.Cache
	ttl   time.Duration
}

const (
	otpCacheSize = 512 * 1024
	OTPTTL       = 10 * time.Minute
)

func NewOTPStore() *OTPStore {
	return &OTPStore{
		cache: freecache.NewCache(otpCacheSize),
		ttl:   OTPTTL,
	}
}

// Issue generates a six-digit code for the email, replacing any
// previous one.
func (s *OTPStore) Issue(email string) (string, error) {
	code, err := generateOTP()
	if err != nil {
		return "", err
	}
	key := normalizeEmail(email)
	if err := s.cache.Set([]byte(key), []byte(code), int(s.ttl.Seconds())); err != nil {
		return "", err
	}
	return code, nil
}

// Verify consumes the code on success; a correct code only works once.
func (s *OTPStore) Verify(email, code string) bool {
	key := normalizeEmail(email)
	stored, err := s.cache.Get([]byte(key))
	if err != nil {
		return false
	}
	if string(stored) != strings.TrimSpace(code) {
		return false
	}
	s.cache.Del([]byte(key))
	return true
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
