package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"s2d_lib/tensor"
)

// TensorData represents a serializable tensor
type TensorData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// TensorDump holds the tensors of one or more oracle runs, keyed by name
type TensorDump struct {
	Version string                 `json:"version"`
	Tensors map[string]*TensorData `json:"tensors"`
}

// NewTensorDump returns an empty dump.
func NewTensorDump() *TensorDump {
	return &TensorDump{Version: "1.0", Tensors: make(map[string]*TensorData)}
}

// Add stores a copy of t under name.
func (d *TensorDump) Add(name string, t *tensor.Tensor) {
	d.Tensors[name] = TensorToData(name, t)
}

// SaveTensors saves a dump to a JSON file
func SaveTensors(filepath string, dump *TensorDump) error {
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tensors: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadTensors loads a dump from a JSON file
func LoadTensors(filepath string) (*TensorDump, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor file: %w", err)
	}
	var dump TensorDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tensors: %w", err)
	}
	return &dump, nil
}

// TensorToData converts a tensor to serializable data
func TensorToData(name string, t *tensor.Tensor) *TensorData {
	return &TensorData{
		Name:  name,
		Shape: append([]int(nil), t.Shape...),
		Data:  append([]float64{}, t.Data...), // copy
	}
}

// DataToTensor converts serialized data back to a tensor
func DataToTensor(td *TensorData) (*tensor.Tensor, error) {
	return tensor.FromData(td.Data, td.Shape...)
}
