package api

import (
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/kozuki35/hot-desking/internal/domain"
)

var (
	personNamePattern = regexp.MustCompile(`^[a-zA-Z\s-]+$`)
	passwordPattern   = regexp.MustCompile(`^[A-Za-z\d]{8,}$`)
	registerOnce      sync.Once
)

// RegisterValidators installs the custom binding tags on gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("slot", validateSlot)
		_ = v.RegisterValidation("personname", validatePersonName)
		_ = v.RegisterValidation("password", validatePassword)
	})
}

func validateSlot(fl validator.FieldLevel) bool {
	return domain.TimeSlot(fl.Field().String()).Valid()
}

func validatePersonName(fl validator.FieldLevel) bool {
	return personNamePattern.MatchString(fl.Field().String())
}

// validatePassword accepts 8 or more ASCII letters and digits, with at least
// one of each.
func validatePassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return passwordPattern.MatchString(s) && strings.ContainsAny(s, letters) && strings.ContainsAny(s, "0123456789")
}

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
