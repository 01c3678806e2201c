package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Position struct {
	Lat      float64  `json:"lat" validate:"gte=-90,lte=90"`
	Lng      float64  `json:"lng" validate:"gte=-180,lte=180"`
	Accuracy *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
}

func (p Position) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return nil
}

const MaxNicknameLength = 32

// max counts runes, not bytes.
var nicknameRule = "required,max=" + strconv.Itoa(MaxNicknameLength)

// NormalizeNickname trims the nickname and checks its length.
func NormalizeNickname(raw string) (string, error) {
	n := strings.TrimSpace(raw)
	if err := validate.Var(n, nicknameRule); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidNickname, err)
	}
	return n, nil
}
