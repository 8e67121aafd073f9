package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/coletas-service/internal/cache"
	"github.com/mmeshcher/coletas-service/internal/metrics"
	"github.com/mmeshcher/coletas-service/internal/model"
	"github.com/mmeshcher/coletas-service/internal/policy"
)

// ErrRecipientCredentials возвращается, если пароль получателя не подошёл.
var ErrRecipientCredentials = fmt.Errorf("%w: invalid recipient credentials", model.ErrUnauthenticated)

// TrackPublic возвращает статус и историю груза по номеру заказа или накладной без персональных данных.
func (s *Service) TrackPublic(ctx context.Context, ref string) (*model.PublicTracking, error) {
	if ref == "" {
		return nil, required("id")
	}

	if cached, ok := s.cachedTracking(ctx, ref); ok {
		return cached, nil
	}
	version, cacheable := s.trackingVersion(ctx, ref)

	sh, err := s.repo.GetShipmentByOrderOrInvoice(ctx, ref)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.GetHistory(ctx, sh.ID)
	if err != nil {
		return nil, err
	}

	tracking := &model.PublicTracking{
		OrderNumber: sh.OrderNumber,
		Status:      sh.Status,
		History:     make([]model.PublicEvent, 0, len(history)),
	}
	for _, h := range history {
		tracking.History = append(tracking.History, model.PublicEvent{
			RecordedAt: h.RecordedAt,
			Status:     h.Status,
			Location:   h.Location,
		})
	}

	if cacheable {
		s.storeTracking(ctx, ref, version, tracking)
	}
	return tracking, nil
}

func (s *Service) cachedTracking(ctx context.Context, ref string) (*model.PublicTracking, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			metrics.TrackingCacheLookupsTotal.WithLabelValues("miss").Inc()
		} else {
			metrics.TrackingCacheLookupsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("tracking cache read failed", zap.String("ref", ref), zap.Error(err))
		}
		return nil, false
	}

	var tracking model.PublicTracking
	if err := json.Unmarshal(raw, &tracking); err != nil {
		metrics.TrackingCacheLookupsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("tracking cache entry is corrupt", zap.String("ref", ref), zap.Error(err))
		return nil, false
	}

	metrics.TrackingCacheLookupsTotal.WithLabelValues("hit").Inc()
	return &tracking, true
}

// trackingVersion читает версию ключа до обращения к базе. Без версии ответ не кэшируется.
func (s *Service) trackingVersion(ctx context.Context, ref string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}

	version, err := s.cache.Version(ctx, ref)
	if err != nil {
		s.logger.Warn("tracking cache version read failed", zap.String("ref", ref), zap.Error(err))
		return 0, false
	}
	return version, true
}

// storeTracking кладёт ответ в кэш, если ключ не сбрасывали после чтения версии.
func (s *Service) storeTracking(ctx context.Context, ref string, version int64, tracking *model.PublicTracking) {
	raw, err := json.Marshal(tracking)
	if err != nil {
		s.logger.Warn("encode tracking for cache", zap.Error(err))
		return
	}

	err = s.cache.SetIfVersion(ctx, ref, version, raw)
	switch {
	case errors.Is(err, cache.ErrStale):
		metrics.TrackingCacheLookupsTotal.WithLabelValues("stale").Inc()
		s.logger.Debug("tracking snapshot outdated, not cached", zap.String("ref", ref))
	case err != nil:
		s.logger.Warn("tracking cache write failed", zap.String("ref", ref), zap.Error(err))
	}
}

// invalidateTracking сбрасывает кэш по номерам заказа и накладной перечисленных грузов.
func (s *Service) invalidateTracking(ctx context.Context, shipments ...*model.Shipment) {
	if s.cache == nil {
		return
	}

	keys := make([]string, 0, 2*len(shipments))
	for _, sh := range shipments {
		if sh != nil {
			keys = append(keys, sh.OrderNumber, sh.InvoiceNumber)
		}
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("tracking cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// TrackAsSender возвращает груз с историей, если CPF/CNPJ совпадает с отправителем.
func (s *Service) TrackAsSender(ctx context.Context, orderNumber, taxID string) (*model.Shipment, error) {
	if orderNumber == "" {
		return nil, required("numeroEncomenda")
	}
	if taxID == "" {
		return nil, required("cpfCnpj")
	}

	sh, err := s.repo.GetShipmentByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if err := policy.MatchSender(sh, taxID); err != nil {
		return nil, err
	}

	return s.withHistory(ctx, sh)
}

// TrackAsRecipient возвращает груз с историей получателю. Получатель должен иметь
// учётную запись клиента с тем же CPF/CNPJ и подтвердить её паролем.
func (s *Service) TrackAsRecipient(ctx context.Context, orderNumber, taxID, password string) (*model.Shipment, error) {
	if orderNumber == "" {
		return nil, required("numeroEncomenda")
	}
	if taxID == "" {
		return nil, required("cpfCnpj")
	}
	if password == "" {
		return nil, required("senha")
	}

	client, err := s.repo.GetClientByTaxID(ctx, taxID)
	if err != nil {
		return nil, err
	}
	if len(client.PasswordHash) == 0 ||
		bcrypt.CompareHashAndPassword(client.PasswordHash, []byte(password)) != nil {
		return nil, ErrRecipientCredentials
	}

	sh, err := s.repo.GetShipmentByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if err := policy.MatchRecipient(sh, taxID); err != nil {
		return nil, err
	}

	return s.withHistory(ctx, sh)
}

func (s *Service) withHistory(ctx context.Context, sh *model.Shipment) (*model.Shipment, error) {
	history, err := s.repo.GetHistory(ctx, sh.ID)
	if err != nil {
		return nil, err
	}
	sh.History = history
	return sh, nil
}
