// Package validation はリクエスト構造体のタグベース検証を提供する。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/studyplatform/internal/model"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// get は共有のvalidatorインスタンスを返す。validator.Validateはゴルーチンセーフ。
func get() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		// エラーメッセージのフィールド名はJSONのキー名を使う
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		validate = v
	})
	return validate
}

// Struct はvalidateタグに従って検証し、違反があればVALIDATION_FAILEDのAPIErrorを返す。
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.NewValidationError("リクエストの形式が不正です")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	sort.Strings(msgs)
	return model.NewValidationError(strings.Join(msgs, ", "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " は必須です"
	case "max":
		return fmt.Sprintf("%s は%s文字以内で指定してください", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s は%s以降を指定してください", field, lowerFirst(fe.Param()))
	case "gt":
		return fmt.Sprintf("%s は%sより大きい値を指定してください", field, fe.Param())
	default:
		return field + " が不正です"
	}
}

// lowerFirst はgtefieldのパラメータ（Goのフィールド名）をJSONキーの表記に寄せる。
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
