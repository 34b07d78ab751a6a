package model

import (
	"errors"
	"fmt"
)

var (
	// ErrPlaceNotFound はPlaces検索で一致する店舗がなかったことを示す（幻覚の可能性）
	ErrPlaceNotFound = errors.New("place not found")

	// ErrMalformedResponse はプロバイダの応答がJSONでない、またはrecommendationsを含まないことを示す
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrUnknownDistrict は設定にない地区が指定されたことを示す
	ErrUnknownDistrict = errors.New("unknown district")

	// ErrRunNotFound は指定されたランのレポートが存在しないことを示す
	ErrRunNotFound = errors.New("run report not found")
)

// ConfigError は実行前に検出される設定エラー（ラン全体を中断する）
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error in %s: %s: %v", e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("config error in %s: %s", e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ProviderErrorKind はプロバイダエラーの分類
type ProviderErrorKind string

const (
	ProviderErrorTransient ProviderErrorKind = "transient"
	ProviderErrorPermanent ProviderErrorKind = "permanent"
)

// ProviderError は1件のWorkItemまたは名前解決の失敗
type ProviderError struct {
	Platform   string
	Kind       ProviderErrorKind
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s provider error (%s, status %d): %v", e.Platform, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider error (%s): %v", e.Platform, e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient は再試行で回復しうるエラーかを返す
func (e *ProviderError) IsTransient() bool {
	return e.Kind == ProviderErrorTransient
}

// NewProviderError はHTTPステータスから分類してProviderErrorを作成する。
// statusCode 0 はネットワーク障害として扱う。
func NewProviderError(platform string, statusCode int, err error) *ProviderError {
	return &ProviderError{
		Platform:   platform,
		Kind:       ClassifyStatus(statusCode),
		StatusCode: statusCode,
		Err:        err,
	}
}

// ClassifyStatus はHTTPステータスをtransient/permanentに分類する
func ClassifyStatus(statusCode int) ProviderErrorKind {
	switch {
	case statusCode == 0, statusCode == 408, statusCode == 429, statusCode >= 500:
		return ProviderErrorTransient
	default:
		return ProviderErrorPermanent
	}
}

// IsTransientError はエラーチェーンにtransientなProviderErrorが含まれるかを返す
func IsTransientError(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.IsTransient()
	}
	return false
}

// StoreError は永続化の失敗（スキャン結果は巻き戻さない）
type StoreError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
