package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/hvkoch/verleihsystem/internal/models"
)

// IndexDevice writes the device document, overwriting a previous version.
func IndexDevice(ctx context.Context, client *elasticsearch.Client, index string, device *models.Device) error {
	body, err := json.Marshal(device)
	if err != nil {
		return err
	}
	res, err := client.Index(
		index,
		bytes.NewReader(body),
		client.Index.WithContext(ctx),
		client.Index.WithDocumentID(strconv.FormatUint(uint64(device.ID), 10)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index device %d: %s", device.ID, res.Status())
	}
	return nil
}

func DeleteDevice(ctx context.Context, client *elasticsearch.Client, index string, deviceID uint) error {
	res, err := client.Delete(
		index,
		strconv.FormatUint(uint64(deviceID), 10),
		client.Delete.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	// A missing document is fine, the goal is absence.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete device %d: %s", deviceID, res.Status())
	}
	return nil
}

func SearchDevices(ctx context.Context, client *elasticsearch.Client, index, query string, from, size int) (int64, []models.Device, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "inventory_number^2", "device_type", "notes"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(index),
		client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search devices: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Device `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	devices := make([]models.Device, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		devices[i] = hit.Source
	}
	return r.Hits.Total.Value, devices, nil
}
