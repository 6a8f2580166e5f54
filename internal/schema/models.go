package schema

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// The backend's /models payload carries neither timestamps, sizes nor
// digests, so the client list is filled with these placeholders.
const (
	PlaceholderModifiedAt = "2024-02-24T18:29:19.5508829+01:00"
	PlaceholderSize       = int64(1966917458)
)

type BackendModel struct {
	ID string `json:"id"`
}

// BackendModelList is the OpenAI-style model list. Fields other than the
// model ids are ignored.
type BackendModelList struct {
	Data []BackendModel `json:"data"`
}

type ClientModel struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
}

// ClientModelList is the Ollama-style /api/tags payload.
type ClientModelList struct {
	Models []ClientModel `json:"models"`
}

func DecodeBackendModelList(data []byte) (BackendModelList, error) {
	var list BackendModelList
	if err := json.Unmarshal(data, &list); err != nil {
		return BackendModelList{}, fmt.Errorf("failed to decode backend model list: %w", err)
	}
	return list, nil
}

// ToClientModelList maps backend models one to one, keeping their order.
func ToClientModelList(list BackendModelList) ClientModelList {
	models := make([]ClientModel, 0, len(list.Data))
	for _, m := range list.Data {
		models = append(models, ClientModel{
			Name:       m.ID,
			Model:      m.ID,
			ModifiedAt: PlaceholderModifiedAt,
			Size:       PlaceholderSize,
			Digest:     uuid.New().String(),
		})
	}
	return ClientModelList{Models: models}
}
