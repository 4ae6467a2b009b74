package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// ConfigLookup returns a raw configuration entry by name.
type ConfigLookup interface {
	Lookup(name string) (json.RawMessage, bool)
}

type configResponse struct {
	Status int             `json:"status"`
	Config json.RawMessage `json:"config"`
}

// ConfigHandler serves POST /api/get_config: it echoes the configuration
// entry named in the JSON body.
type ConfigHandler struct {
	logger *slog.Logger
	lookup ConfigLookup
}

func NewConfigHandler(logger *slog.Logger, lookup ConfigLookup) *ConfigHandler {
	return &ConfigHandler{logger: logger, lookup: lookup}
}

func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		h.logger.Error("Failed to decode config request", slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if body == nil {
		h.logger.Error("Config request body is null")
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	name, err := configName(body["name"])
	if err != nil {
		h.logger.Error("Invalid config name", slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "Field 'name' is required")
		return
	}

	value, found := h.lookup.Lookup(name)
	if !found {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Config '%s' not found", name))
		return
	}

	writeJSON(w, http.StatusOK, configResponse{Status: 1, Config: value})
}

// configName turns the decoded name field into a lookup key. Absent, null,
// false, zero and empty values yield "". Numbers keep their JSON spelling.
// Non-empty arrays and objects cannot name an entry and are an error.
func configName(v any) (string, error) {
	switch name := v.(type) {
	case nil:
		return "", nil
	case string:
		return name, nil
	case bool:
		if !name {
			return "", nil
		}
		return "true", nil
	case json.Number:
		if f, err := name.Float64(); err == nil && f == 0 {
			return "", nil
		}
		return name.String(), nil
	case []any:
		if len(name) == 0 {
			return "", nil
		}
		return "", errors.New("config name cannot be an array")
	case map[string]any:
		if len(name) == 0 {
			return "", nil
		}
		return "", errors.New("config name cannot be an object")
	default:
		return "", fmt.Errorf("unsupported config name type %T", v)
	}
}
