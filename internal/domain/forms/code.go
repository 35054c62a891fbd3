package forms

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"regexp"

	"gorm.io/gorm"
)

var codePattern = regexp.MustCompile(`^[0-9]{4}$`)

// ValidCode reports whether s is a well-formed 4-digit form code.
func ValidCode(s string) bool {
	return codePattern.MatchString(s)
}

// GenerateCode picks an unused 4-digit code. Codes are immutable once
// assigned, so collisions only shrink the pool as forms accumulate.
func GenerateCode(db *gorm.DB) (string, error) {
	for attempt := 0; attempt < 25; attempt++ {
		code := fmt.Sprintf("%04d", rand.Intn(10000))

		var count int64
		if err := db.Model(&Form{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not allocate an unused form code")
}

// DecodeAnswers unmarshals a response's answer payload into a field-id map.
func DecodeAnswers(r *Response) (map[string]string, error) {
	answers := map[string]string{}
	if len(r.Answers) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(r.Answers, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}
