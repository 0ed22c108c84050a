package storage

import "errors"

var (
	ErrUnsupported = errors.New("unsupported storage type")
	ErrOpen        = errors.New("failed to open registry")
	ErrCodec       = errors.New("failed to encode registry value")
)
