package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

var codePattern = regexp.MustCompile(`^[0-9]{4}[A-Z0-9]?$`)

// PromptForCode asks for a securities code when none was given on the
// command line. TSE codes are four digits, occasionally with a letter
// suffix (e.g. 7203, 135A).
func PromptForCode() (string, error) {
	var code string
	prompt := &survey.Input{
		Message: "Enter the securities code (e.g. 7203, 6758):",
		Help:    "Four-digit Tokyo Stock Exchange code, letter suffix allowed",
	}

	err := survey.AskOne(prompt, &code, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(strings.ToUpper(val.(string)))
		if str == "" {
			return fmt.Errorf("securities code cannot be empty")
		}
		if !codePattern.MatchString(str) {
			return fmt.Errorf("invalid code format (expected e.g. 7203 or 135A)")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ToUpper(code)), nil
}
