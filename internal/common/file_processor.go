package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fairhire/internal/dataset"
	"fairhire/internal/errors"
	"fairhire/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger      *errors.Logger
	maxFileSize int64
}

// NewFileProcessor creates a new file processor instance. A maxFileSize of
// zero accepts inputs of any size.
func NewFileProcessor(logger *errors.Logger, maxFileSize int64) *FileProcessor {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &FileProcessor{logger: logger, maxFileSize: maxFileSize}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// validateInput checks that filename exists and is within the size limit
func (fp *FileProcessor) validateInput(filename string) error {
	if _, err := os.Stat(filename); filename != "" && os.IsNotExist(err) {
		return errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("File not found: %s", filename), err)
	}
	if err := utils.ValidateInputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}
	if err := utils.CheckFileSize(filename, fp.maxFileSize); err != nil {
		return errors.NewValidationError("FILE_TOO_LARGE", err.Error(), err)
	}
	return nil
}

// LoadDataset validates and decodes a CSV, JSON or YAML applications file
func (fp *FileProcessor) LoadDataset(filename string) (*dataset.Table, error) {
	if err := fp.validateInput(filename); err != nil {
		return nil, err
	}
	if !utils.IsDatasetFile(filename) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Unsupported dataset file %s (expected one of %s)",
				filename, strings.Join(utils.DatasetExtensions, ", ")), dataset.ErrUnsupportedFormat)
	}

	table, err := dataset.LoadFile(filename)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidDataset,
			fmt.Sprintf("Cannot load dataset: %s", filename), err)
	}

	fp.logger.Debug("Dataset loaded",
		"filename", filename,
		"rows", table.Len(),
		"columns", table.Columns())
	return table, nil
}

// ReadJSON validates filename and decodes it into v
func (fp *FileProcessor) ReadJSON(filename string, v any) error {
	if err := fp.validateInput(filename); err != nil {
		return err
	}
	if utils.GetFileExtension(filename) != ".json" {
		fp.logger.Warn("File may not be JSON", "filename", filename)
	}

	content, err := fp.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(content, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Invalid JSON in %s", filename), err)
	}
	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
