// Package policy содержит правила авторизации операций над грузами.
//
// Каждое правило возвращает nil, если операция разрешена, и ошибку категории
// model.ErrUnauthenticated либо model.ErrForbidden в противном случае.
package policy

import (
	"crypto/subtle"
	"fmt"

	"github.com/mmeshcher/coletas-service/internal/model"
)

// Ошибки правил доступа.
var (
	ErrNoIdentity          = fmt.Errorf("%w: identity required", model.ErrUnauthenticated)
	ErrStaffOnly           = fmt.Errorf("%w: staff only", model.ErrForbidden)
	ErrClientOnly          = fmt.Errorf("%w: clients only", model.ErrForbidden)
	ErrSenderMismatch      = fmt.Errorf("%w: sender tax id does not match this shipment", model.ErrUnauthenticated)
	ErrRecipientMismatch   = fmt.Errorf("%w: recipient tax id does not match this shipment", model.ErrUnauthenticated)
	ErrDriverTokenMismatch = fmt.Errorf("%w: invalid driver token", model.ErrUnauthenticated)
)

// RequireStaff разрешает операцию только сотруднику.
func RequireStaff(id *model.Identity) error {
	if id == nil {
		return ErrNoIdentity
	}
	if id.Role != model.RoleAdmin {
		return ErrStaffOnly
	}
	return nil
}

// RequireClient разрешает операцию только клиенту с указанным CPF/CNPJ.
func RequireClient(id *model.Identity) error {
	if id == nil {
		return ErrNoIdentity
	}
	if id.Role != model.RoleClient || id.TaxID == "" {
		return ErrClientOnly
	}
	return nil
}

// OwnsShipment сообщает, является ли клиент отправителем или получателем груза.
func OwnsShipment(id *model.Identity, s *model.Shipment) bool {
	if RequireClient(id) != nil || s == nil {
		return false
	}
	return s.SenderTaxID == id.TaxID || s.RecipientTaxID == id.TaxID
}

// MatchSender проверяет, что CPF/CNPJ совпадает с отправителем груза.
func MatchSender(s *model.Shipment, taxID string) error {
	if taxID == "" || s.SenderTaxID != taxID {
		return ErrSenderMismatch
	}
	return nil
}

// MatchRecipient проверяет, что CPF/CNPJ совпадает с получателем груза.
func MatchRecipient(s *model.Shipment, taxID string) error {
	if taxID == "" || s.RecipientTaxID != taxID {
		return ErrRecipientMismatch
	}
	return nil
}

// CheckDriverToken сверяет предъявленный токен водителя с токеном груза.
func CheckDriverToken(s *model.Shipment, token string) error {
	if s.DriverToken == "" || token == "" {
		return ErrDriverTokenMismatch
	}
	if subtle.ConstantTimeCompare([]byte(s.DriverToken), []byte(token)) != 1 {
		return ErrDriverTokenMismatch
	}
	return nil
}
