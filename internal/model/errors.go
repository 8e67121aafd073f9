package model

import "errors"

// Категории ошибок, на которые опирается HTTP-слой при выборе кода ответа.
var (
	// ErrValidation некорректные или отсутствующие входные данные.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated отсутствует или недействительна идентичность вызывающего.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden идентичность подтверждена, но прав недостаточно.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound запрошенная сущность не существует.
	ErrNotFound = errors.New("not found")
	// ErrConflict нарушено ограничение уникальности.
	ErrConflict = errors.New("conflict")
)
