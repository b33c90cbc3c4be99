package file

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileOperations reads the node's configuration, identity and key material.
type FileOperations interface {
	ReadFileRaw(filePath string) ([]byte, error)
	ReadJsonFile(filePath string, v any) error
	ReadYamlFile(filePath string, v any) error
}

type FileService struct{}

func NewFileService() *FileService {
	return &FileService{}
}

// ReadFileRaw returns the whole file. Errors keep the underlying fs error so
// errors.Is(err, os.ErrNotExist) works for callers.
func (fs *FileService) ReadFileRaw(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	return data, nil
}

func (fs *FileService) ReadJsonFile(filePath string, v any) error {
	return fs.decode(filePath, v, func(data []byte, v any) error {
		return json.NewDecoder(bytes.NewReader(data)).Decode(v)
	})
}

// ReadYamlFile decodes YAML. An empty file leaves v untouched.
func (fs *FileService) ReadYamlFile(filePath string, v any) error {
	return fs.decode(filePath, v, yaml.Unmarshal)
}

func (fs *FileService) decode(filePath string, v any, unmarshal func([]byte, any) error) error {
	data, err := fs.ReadFileRaw(filePath)
	if err != nil {
		return err
	}
	if err := unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filePath, err)
	}
	return nil
}
