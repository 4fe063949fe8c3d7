package onnx

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ModelPath    string `envconfig:"ONNX_MODEL_PATH"`
	LibraryPath  string `envconfig:"ONNX_LIBRARY_PATH"`
	InputDim     int    `envconfig:"ONNX_INPUT_DIM" default:"256"`
	InputName    string `envconfig:"ONNX_INPUT_NAME" default:"input"`
	OutputName   string `envconfig:"ONNX_OUTPUT_NAME" default:"output"`
	ApplySoftmax bool   `envconfig:"ONNX_APPLY_SOFTMAX" default:"true"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
