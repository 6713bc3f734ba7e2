package service

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/d60-Lab/persona-graph/internal/apperr"
)

// DefaultNameMaxGroups 名称最多的单词分组数
const DefaultNameMaxGroups = 6

// 与 personas 表的列宽一致
const (
	MaxHandleLength = 64
	MaxNameLength   = 128
)

var (
	handlePattern   = regexp.MustCompile(`^\w+$`)
	usernamePattern = regexp.MustCompile(`^\w+$`)
)

// NamePolicy 名称格式策略：1..MaxGroups 个 \w+ 分组，分组间恰好一个空白字符
type NamePolicy struct {
	MaxGroups int
	pattern   *regexp.Regexp
}

func NewNamePolicy(maxGroups int) NamePolicy {
	if maxGroups < 1 {
		maxGroups = DefaultNameMaxGroups
	}
	return NamePolicy{
		MaxGroups: maxGroups,
		pattern:   regexp.MustCompile(fmt.Sprintf(`^\w+(\s\w+){0,%d}$`, maxGroups-1)),
	}
}

func (p NamePolicy) Validate(name string) error {
	if err := validation.Validate(name,
		validation.Required,
		validation.RuneLength(1, MaxNameLength),
		validation.Match(p.pattern),
	); err != nil {
		return apperr.WithMessage(apperr.ErrInvalidName,
			"name must be 1 to %d word groups separated by single spaces, at most %d characters", p.MaxGroups, MaxNameLength)
	}
	return nil
}

// NormalizeHandle handle 的唯一键形式：去掉首尾空白，大小写保持不变
func NormalizeHandle(handle string) string { return strings.TrimSpace(handle) }

// ValidHandle 供 HTTP 层做快速校验，与核心规则一致
func ValidHandle(handle string) bool { return validateHandle(NormalizeHandle(handle)) == nil }

func validateHandle(handle string) error {
	if err := validation.Validate(handle,
		validation.Required,
		validation.Length(1, MaxHandleLength),
		validation.Match(handlePattern),
	); err != nil {
		return apperr.Wrap(apperr.ErrInvalidHandle, err)
	}
	return nil
}

func validateContent(content string) error {
	if err := validation.Validate(content, validation.Required, validation.RuneLength(1, 140)); err != nil {
		return apperr.Wrap(apperr.ErrInvalidContent, err)
	}
	return nil
}

func validateCredentials(username, password string) error {
	err := validation.Errors{
		"username": validation.Validate(username,
			validation.Required,
			validation.Length(1, 64),
			validation.Match(usernamePattern),
		),
		"password": validation.Validate(password,
			validation.Required,
			validation.Length(6, 128),
		),
	}.Filter()
	if err != nil {
		return apperr.Wrap(apperr.ErrInvalidAccount, err)
	}
	return nil
}
