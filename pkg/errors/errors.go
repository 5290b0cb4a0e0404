// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// データセットの読み込み、実験の設定、外部AutoMLサービスとの通信で発生するエラーを
// 構造化された型として表現し、zerologで出力できるようにします。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("caretstudio-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は警告ハンドラを設定し、直前のハンドラを返します。
//
// 例:
//
//	prev := errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
//	defer errors.SetWarningHandler(prev)
func SetWarningHandler(handler func(w error)) func(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	prev := warningHandler
	warningHandler = handler
	return prev
}

// SetZerologWarnFunc はzerolog警告関数を設定し、直前の関数を返します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) func(warning error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	prev := zerologWarnFunc
	zerologWarnFunc = warnFunc
	return prev
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// DataConversionWarning はセルの値が暗黙的に変換された場合に発生する警告です。
// 例えばJSONのネストしたオブジェクトを文字列として読み込んだ場合など。
type DataConversionWarning struct {
	Column   string
	FromType string
	ToType   string
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("column %q converted from %s to %s. Reason: %s", w.Column, w.FromType, w.ToType, w.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("column", w.Column).
		Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning は新しいDataConversionWarningを作成します。
func NewDataConversionWarning(column, from, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{Column: column, FromType: from, ToType: to, Reason: reason}
}

// DuplicateColumnWarning はヘッダーに同名の列があり、名前を変更した場合の警告です。
type DuplicateColumnWarning struct {
	Column  string
	Renamed string
}

func (w *DuplicateColumnWarning) Error() string {
	return fmt.Sprintf("duplicate column %q renamed to %q", w.Column, w.Renamed)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DuplicateColumnWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("column", w.Column).
		Str("renamed", w.Renamed).
		Str("type", "DuplicateColumnWarning")
}

// NewDuplicateColumnWarning は新しいDuplicateColumnWarningを作成します。
func NewDuplicateColumnWarning(column, renamed string) *DuplicateColumnWarning {
	return &DuplicateColumnWarning{Column: column, Renamed: renamed}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// UnsupportedFormatError はアップロードされたファイルの拡張子が対応していない場合のエラーです。
type UnsupportedFormatError struct {
	Filename  string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("caretstudio: unsupported file format %q for %q (expected csv, xls, xlsx or json)", e.Extension, e.Filename)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *UnsupportedFormatError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("filename", e.Filename).
		Str("extension", e.Extension).
		Str("type", "UnsupportedFormatError")
}

// NewUnsupportedFormatError は新しいUnsupportedFormatErrorを作成し、スタックトレースを付与します。
func NewUnsupportedFormatError(filename, ext string) error {
	return errors.WithStack(&UnsupportedFormatError{Filename: filename, Extension: ext})
}

// ParseError はファイルの解析に失敗した場合のエラーです。
type ParseError struct {
	Format string
	Line   int // 0 の場合は行番号不明
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("caretstudio: parse %s: line %d: %v", e.Format, e.Line, e.Err)
	}
	return fmt.Sprintf("caretstudio: parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ParseError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("format", e.Format).
		Int("line", e.Line).
		Str("cause", fmt.Sprint(e.Err)).
		Str("type", "ParseError")
}

// NewParseError は新しいParseErrorを作成し、スタックトレースを付与します。
func NewParseError(format string, line int, err error) error {
	return errors.WithStack(&ParseError{Format: format, Line: line, Err: err})
}

// ColumnNotFoundError は指定された列がデータセットに存在しない場合のエラーです。
type ColumnNotFoundError struct {
	Op     string
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("caretstudio: %s: column %q not found", e.Op, e.Column)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ColumnNotFoundError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("column", e.Column).
		Str("type", "ColumnNotFoundError")
}

// NewColumnNotFoundError は新しいColumnNotFoundErrorを作成し、スタックトレースを付与します。
func NewColumnNotFoundError(op, column string) error {
	return errors.WithStack(&ColumnNotFoundError{Op: op, Column: column})
}

// InvalidTransitionError はウィザードの現在の状態で許可されていない操作を行った場合のエラーです。
type InvalidTransitionError struct {
	From    string
	Trigger string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("caretstudio: cannot %s from state %s", e.Trigger, e.From)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidTransitionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("from", e.From).
		Str("trigger", e.Trigger).
		Str("type", "InvalidTransitionError")
}

// NewInvalidTransitionError は新しいInvalidTransitionErrorを作成し、スタックトレースを付与します。
func NewInvalidTransitionError(from, trigger string) error {
	return errors.WithStack(&InvalidTransitionError{From: from, Trigger: trigger})
}

// CollaboratorError は外部AutoMLサービスが返したエラーです。
// Message はサービスが返したメッセージをそのまま保持します。
type CollaboratorError struct {
	Op      string
	Status  int
	Message string
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("caretstudio: automl %s failed (status %d): %s", e.Op, e.Status, e.Message)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *CollaboratorError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("status", e.Status).
		Str("message", e.Message).
		Str("type", "CollaboratorError")
}

// NewCollaboratorError は新しいCollaboratorErrorを作成し、スタックトレースを付与します。
func NewCollaboratorError(op string, status int, message string) error {
	return errors.WithStack(&CollaboratorError{Op: op, Status: status, Message: message})
}

// SessionNotFoundError は存在しないセッションIDが指定された場合のエラーです。
type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("caretstudio: session %q not found", e.ID)
}

// NewSessionNotFoundError は新しいSessionNotFoundErrorを作成し、スタックトレースを付与します。
func NewSessionNotFoundError(id string) error {
	return errors.WithStack(&SessionNotFoundError{ID: id})
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("caretstudio: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("caretstudio: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// Mark はエラーに参照エラーの印を付けます。errors.Is(err, reference) が真になります。
func Mark(err, reference error) error {
	return errors.Mark(err, reference)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrNoModels は比較結果にモデルが一つも含まれていない場合のエラーです。
	ErrNoModels = New("no models selected")

	// ErrUnavailable は外部AutoMLサービスに到達できなかった場合の印です。
	// 応答が返ってきた場合は CollaboratorError になります。
	ErrUnavailable = New("automl service unavailable")
)
