package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

type ExtractParams struct {
	WikiURL string `json:"wiki_url" validate:"required,url"`
}

type AskParams struct {
	Question string `json:"question" validate:"required"`
}

type SearchParams struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

type ConfigParams struct {
	URL       string `db:"llm_url" json:"llm_url,omitempty"`
	Model     string `db:"llm_model" json:"llm_model,omitempty"`
	PromptStr string `db:"prompt_str" json:"prompt_str,omitempty"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func validateStruct(s any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

func (params *ExtractParams) Validate() map[string]string {
	return validateStruct(params)
}

func (params *AskParams) Validate() map[string]string {
	return validateStruct(params)
}

func (params *SearchParams) Validate() map[string]string {
	return validateStruct(params)
}

func (params *ConfigParams) Validate() map[string]string {
	return validateStruct(params)
}
