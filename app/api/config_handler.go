package api

import (
	"context"
	"reflect"
	"strings"

	"wikirag/store"
	"wikirag/types"

	"github.com/gofiber/fiber/v2"
)

type ConfigHandler struct {
	configStore store.DBStorer
}

func NewConfigHandler(cfgStore store.DBStorer) *ConfigHandler {
	return &ConfigHandler{
		configStore: cfgStore,
	}
}

func (h *ConfigHandler) HandleGetConfig(c *fiber.Ctx) error {
	cfg, err := h.configStore.GetConfig(context.Background())
	if err != nil {
		return err
	}
	return c.JSON(cfg)
}

// HandleSetConfig updates only the LLM settings present in the request body,
// mapping struct fields to columns through their db tags.
func (h *ConfigHandler) HandleSetConfig(c *fiber.Ctx) error {
	var params types.ConfigParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	v := reflect.ValueOf(params)
	t := reflect.TypeOf(params)
	querySet := make(map[string]any)
	for i := 0; i < v.NumField(); i++ {
		dbTag := t.Field(i).Tag.Get("db")
		fieldValue := v.Field(i).Interface()

		key := strings.Split(dbTag, ",")[0]
		if value, ok := fieldValue.(string); ok && value != "" {
			querySet[key] = value
		}
	}
	if len(querySet) == 0 {
		return ErrBadRequest()
	}

	resp, err := h.configStore.SetConfig(context.Background(), querySet)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
