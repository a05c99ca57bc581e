package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-links-api/internal/dto"
	"github.com/noah-isme/compliance-links-api/internal/models"
	"github.com/noah-isme/compliance-links-api/internal/repository"
	appErrors "github.com/noah-isme/compliance-links-api/pkg/errors"
	"github.com/noah-isme/compliance-links-api/pkg/middleware/requestid"
)

type shareLinkStore interface {
	Insert(ctx context.Context, link *models.ShareLink) error
	FindByToken(ctx context.Context, token string) (*models.ShareLink, error)
	ClaimAccess(ctx context.Context, token string, now time.Time, record *models.AccessRecord) (int, bool, error)
	SetRevoked(ctx context.Context, token string, revokedAt time.Time) error
	AppendAccessLog(ctx context.Context, record *models.AccessRecord) error
	ListAccessLogs(ctx context.Context, linkID string) ([]models.AccessRecord, error)
	List(ctx context.Context, filter models.ShareLinkFilter) ([]models.ShareLink, int, error)
}

type passwordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encoded string) (bool, error)
}

type tokenGenerator interface {
	Generate() (string, error)
}

type attemptLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// ShareLinkConfig carries link issuing and redemption policy.
type ShareLinkConfig struct {
	BaseURL         string
	ConcealNotFound bool
	AttemptLimit    int
	AttemptWindow   time.Duration
	TokenRetries    int
}

// ShareLinkService issues, redeems and revokes disclosure links. It is the
// only writer of link state and of the access ledger.
type ShareLinkService struct {
	store     shareLinkStore
	hasher    passwordHasher
	tokens    tokenGenerator
	expiry    *ExpirationCalculator
	resolver  ResourceResolver
	limiter   attemptLimiter
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	config    ShareLinkConfig
	now       func() time.Time
	// decoyHash is verified against on concealed not-found lookups so they
	// cost the same as a wrong password.
	decoyHash string
}

// NewShareLinkService constructs the service. limiter and metrics may be nil.
func NewShareLinkService(
	store shareLinkStore,
	hasher passwordHasher,
	tokens tokenGenerator,
	expiry *ExpirationCalculator,
	resolver ResourceResolver,
	limiter attemptLimiter,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
	config ShareLinkConfig,
) *ShareLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if expiry == nil {
		expiry = NewExpirationCalculator(0, nil)
	}
	if config.TokenRetries <= 0 {
		config.TokenRetries = 3
	}
	if config.AttemptWindow <= 0 {
		config.AttemptWindow = 15 * time.Minute
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	svc := &ShareLinkService{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		expiry:    expiry,
		resolver:  resolver,
		limiter:   limiter,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		config:    config,
		now:       expiry.now,
	}
	if config.ConcealNotFound && hasher != nil && tokens != nil {
		svc.decoyHash = svc.newDecoyHash()
	}
	return svc
}

func (s *ShareLinkService) newDecoyHash() string {
	seed, err := s.tokens.Generate()
	if err == nil {
		var decoy string
		if decoy, err = s.hasher.Hash(context.Background(), seed); err == nil {
			return decoy
		}
	}
	s.logger.Warn("failed to prepare decoy password hash", zap.Error(err))
	return ""
}

// Create mints a new link for creator.
func (s *ShareLinkService) Create(ctx context.Context, req dto.CreateShareLinkRequest, creator models.Operator) (*dto.CreateShareLinkResponse, error) {
	if creator.ID == "" {
		return nil, appErrors.ErrUnauthorized
	}

	req.ResourceType = strings.TrimSpace(req.ResourceType)
	req.ExpiresIn = strings.ToLower(strings.TrimSpace(req.ExpiresIn))
	for i, id := range req.ResourceID {
		req.ResourceID[i] = strings.TrimSpace(id)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid share link payload")
	}
	if sr, ok := s.resolver.(interface{ Supports(string) bool }); ok && !sr.Supports(req.ResourceType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported resource_type %q", req.ResourceType))
	}

	createdAt := s.now().UTC()
	expiresAt, err := s.expiry.CalculateFrom(createdAt, req.ExpiresIn, req.CustomExpiration)
	if err != nil {
		return nil, err
	}

	metadata := []byte(`{}`)
	if len(req.Metadata) > 0 {
		if metadata, err = json.Marshal(req.Metadata); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "metadata must be a JSON object")
		}
	}

	start := time.Now()
	passwordHash, err := s.hasher.Hash(ctx, req.Password)
	s.metrics.ObserveHash("hash", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to secure link password")
	}

	maxAccess := req.MaxAccessCount
	if req.OneTimeUse {
		maxAccess = nil
	}

	link := &models.ShareLink{
		ResourceType:   req.ResourceType,
		ResourceIDs:    append([]string(nil), req.ResourceID...),
		CreatedBy:      creator.ID,
		CreatedAt:      createdAt,
		ExpiresAt:      expiresAt,
		PasswordHash:   passwordHash,
		OneTimeUse:     req.OneTimeUse,
		MaxAccessCount: maxAccess,
		Watermark:      req.Watermark,
		Metadata:       metadata,
	}

	if err := s.insertWithFreshToken(ctx, link); err != nil {
		return nil, err
	}

	s.metrics.ObserveLinkCreated(link.ResourceType, link.OneTimeUse)
	s.log(ctx).Info("share link created",
		zap.String("link_id", link.ID),
		zap.String("resource_type", link.ResourceType),
		zap.Int("resource_count", len(link.ResourceIDs)),
		zap.String("created_by", link.CreatedBy),
		zap.Time("expires_at", link.ExpiresAt),
		zap.Bool("one_time_use", link.OneTimeUse),
	)

	return &dto.CreateShareLinkResponse{
		ID:             link.ID,
		Token:          link.Token,
		URL:            s.linkURL(link.Token),
		ExpiresAt:      link.ExpiresAt,
		OneTimeUse:     link.OneTimeUse,
		MaxAccessCount: link.MaxAccessCount,
		Watermark:      link.Watermark,
	}, nil
}

func (s *ShareLinkService) insertWithFreshToken(ctx context.Context, link *models.ShareLink) error {
	for attempt := 1; attempt <= s.config.TokenRetries; attempt++ {
		token, err := s.tokens.Generate()
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate link token")
		}
		link.Token = token

		err = s.store.Insert(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateToken) {
			return appErrors.Unavailable(err, "failed to persist share link")
		}
		s.log(ctx).Warn("share link token collision, regenerating", zap.Int("attempt", attempt))
	}
	return appErrors.Unavailable(repository.ErrDuplicateToken, "failed to allocate a unique link token")
}

// Resolve redeems token with password. Every attempt against an existing link
// is recorded in the access ledger before Resolve returns.
func (s *ShareLinkService) Resolve(ctx context.Context, token, password string, reqCtx models.RequestContext) (*dto.ResolvedShareLink, error) {
	link, err := s.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if s.config.ConcealNotFound && s.decoyHash != "" {
				_, _ = s.hasher.Verify(ctx, password, s.decoyHash)
			}
			s.metrics.ObserveResolution(OutcomeNotFound)
			s.log(ctx).Info("share link resolve rejected", zap.String("reason", "not-found"), zap.String("ip", reqCtx.IPAddress))
			return nil, s.notFoundError()
		}
		s.metrics.ObserveResolution(OutcomeUnavailable)
		return nil, appErrors.Unavailable(err, "failed to load share link")
	}

	now := s.now().UTC()
	if reason, linkErr := terminalState(link, now); linkErr != nil {
		return nil, s.reject(ctx, link, reqCtx, now, reason, linkErr)
	}

	if s.limiter != nil && s.config.AttemptLimit > 0 {
		allowed, retryAfter, err := s.limiter.Allow(ctx, link.ID+":"+reqCtx.IPAddress, s.config.AttemptLimit, s.config.AttemptWindow)
		switch {
		case err != nil:
			s.log(ctx).Warn("attempt limiter unavailable, continuing", zap.String("link_id", link.ID), zap.Error(err))
		case !allowed:
			limited := appErrors.Clone(appErrors.ErrRateLimited, fmt.Sprintf("too many attempts, retry in %s", retryAfter.Round(time.Second)))
			return nil, s.reject(ctx, link, reqCtx, now, models.AccessFailureRateLimited, limited)
		}
	}

	start := time.Now()
	ok, err := s.hasher.Verify(ctx, password, link.PasswordHash)
	s.metrics.ObserveHash("verify", time.Since(start))
	if err != nil {
		s.metrics.ObserveResolution(OutcomeUnavailable)
		s.log(ctx).Warn("password verification did not run", zap.String("link_id", link.ID), zap.Error(err))
		return nil, appErrors.Unavailable(err, "failed to verify link password")
	}
	if !ok {
		return nil, s.reject(ctx, link, reqCtx, s.now().UTC(), models.AccessFailureBadPassword, s.authError())
	}

	claimedAt := s.now().UTC()
	record := &models.AccessRecord{
		LinkID:     link.ID,
		AccessedAt: claimedAt,
		IPAddress:  reqCtx.IPAddress,
		UserAgent:  reqCtx.UserAgent,
	}
	count, claimed, err := s.store.ClaimAccess(ctx, token, claimedAt, record)
	if err != nil {
		s.metrics.ObserveResolution(OutcomeUnavailable)
		return nil, appErrors.Unavailable(err, "failed to record link access")
	}
	if !claimed {
		reason, linkErr := s.classifyLostClaim(ctx, token, claimedAt)
		return nil, s.reject(ctx, link, reqCtx, claimedAt, reason, linkErr)
	}

	s.metrics.ObserveResolution(OutcomeSuccess)
	s.log(ctx).Info("share link resolved",
		zap.String("link_id", link.ID),
		zap.Int("access_count", count),
		zap.String("ip", reqCtx.IPAddress),
	)

	data, err := s.resolver.Fetch(ctx, link.ResourceType, link.ResourceIDs)
	if err != nil {
		s.log(ctx).Error("resource resolver failed after successful claim", zap.String("link_id", link.ID), zap.Error(err))
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Unavailable(err, "failed to load shared records")
	}

	return &dto.ResolvedShareLink{
		ResourceType: link.ResourceType,
		ResourceIDs:  append([]string(nil), link.ResourceIDs...),
		Data:         data,
		Watermark:    link.Watermark,
		Metadata:     json.RawMessage(link.Metadata),
		AccessCount:  count,
		ExpiresAt:    link.ExpiresAt,
	}, nil
}

// classifyLostClaim explains why the conditional claim matched no row.
func (s *ShareLinkService) classifyLostClaim(ctx context.Context, token string, now time.Time) (string, *appErrors.Error) {
	current, err := s.store.FindByToken(ctx, token)
	if err != nil {
		s.log(ctx).Warn("reload after lost claim failed", zap.Error(err))
		return models.AccessFailureExhausted, appErrors.ErrLinkExhausted
	}
	if reason, linkErr := terminalState(current, now); linkErr != nil {
		return reason, linkErr
	}
	return models.AccessFailureExhausted, appErrors.ErrLinkExhausted
}

// reject appends a failed attempt and returns linkErr, or a store error when
// the ledger write fails.
func (s *ShareLinkService) reject(ctx context.Context, link *models.ShareLink, reqCtx models.RequestContext, at time.Time, reason string, linkErr *appErrors.Error) error {
	failure := reason
	record := &models.AccessRecord{
		LinkID:        link.ID,
		AccessedAt:    at,
		IPAddress:     reqCtx.IPAddress,
		UserAgent:     reqCtx.UserAgent,
		Success:       false,
		FailureReason: &failure,
	}
	if err := s.store.AppendAccessLog(ctx, record); err != nil {
		s.metrics.ObserveResolution(OutcomeUnavailable)
		s.log(ctx).Error("failed to append access log", zap.String("link_id", link.ID), zap.String("reason", reason), zap.Error(err))
		return appErrors.Unavailable(err, "failed to record link access")
	}

	s.metrics.ObserveResolution(outcomeForReason(reason))
	s.log(ctx).Info("share link resolve rejected",
		zap.String("link_id", link.ID),
		zap.String("reason", reason),
		zap.String("ip", reqCtx.IPAddress),
	)
	return linkErr
}

// Revoke permanently disables a link. Only the creator or an administrator may revoke.
func (s *ShareLinkService) Revoke(ctx context.Context, token string, requester models.Operator) error {
	link, err := s.loadForManagement(ctx, token, requester)
	if err != nil {
		return err
	}

	if err := s.store.SetRevoked(ctx, token, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrLinkNotFound
		}
		return appErrors.Unavailable(err, "failed to revoke share link")
	}

	if !link.Revoked {
		s.metrics.ObserveLinkRevoked()
	}
	s.log(ctx).Info("share link revoked",
		zap.String("link_id", link.ID),
		zap.String("revoked_by", requester.ID),
		zap.Bool("already_revoked", link.Revoked),
	)
	return nil
}

// Get returns the management view of a link.
func (s *ShareLinkService) Get(ctx context.Context, token string, requester models.Operator) (*dto.ShareLinkView, error) {
	link, err := s.loadForManagement(ctx, token, requester)
	if err != nil {
		return nil, err
	}
	view := s.toView(link, s.now().UTC())
	return &view, nil
}

// List returns links visible to requester. Non-admins only see their own links.
func (s *ShareLinkService) List(ctx context.Context, requester models.Operator, query dto.ShareLinkListQuery) ([]dto.ShareLinkView, *models.Pagination, error) {
	if requester.ID == "" {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.ShareLinkFilter{
		CreatedBy:    strings.TrimSpace(query.CreatedBy),
		ResourceType: strings.TrimSpace(query.ResourceType),
		Page:         query.Page,
		PageSize:     query.PageSize,
	}
	if !requester.Role.IsAdmin() {
		if filter.CreatedBy != "" && filter.CreatedBy != requester.ID {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "cannot list links issued by other operators")
		}
		filter.CreatedBy = requester.ID
	}

	links, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Unavailable(err, "failed to list share links")
	}

	now := s.now().UTC()
	views := make([]dto.ShareLinkView, 0, len(links))
	for i := range links {
		views = append(views, s.toView(&links[i], now))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return views, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// AccessLogs returns the ordered access ledger of a link.
func (s *ShareLinkService) AccessLogs(ctx context.Context, token string, requester models.Operator) ([]models.AccessRecord, error) {
	link, err := s.loadForManagement(ctx, token, requester)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListAccessLogs(ctx, link.ID)
	if err != nil {
		return nil, appErrors.Unavailable(err, "failed to load access logs")
	}
	return records, nil
}

func (s *ShareLinkService) loadForManagement(ctx context.Context, token string, requester models.Operator) (*models.ShareLink, error) {
	if requester.ID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	link, err := s.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrLinkNotFound
		}
		return nil, appErrors.Unavailable(err, "failed to load share link")
	}
	if link.CreatedBy != requester.ID && !requester.Role.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the issuing operator or an administrator may manage this link")
	}
	return link, nil
}

func (s *ShareLinkService) toView(link *models.ShareLink, now time.Time) dto.ShareLinkView {
	return dto.ShareLinkView{
		ID:             link.ID,
		Token:          link.Token,
		URL:            s.linkURL(link.Token),
		ResourceType:   link.ResourceType,
		ResourceIDs:    append([]string(nil), link.ResourceIDs...),
		CreatedBy:      link.CreatedBy,
		CreatedAt:      link.CreatedAt,
		ExpiresAt:      link.ExpiresAt,
		OneTimeUse:     link.OneTimeUse,
		MaxAccessCount: link.MaxAccessCount,
		AccessCount:    link.AccessCount,
		Revoked:        link.Revoked,
		RevokedAt:      link.RevokedAt,
		Watermark:      link.Watermark,
		Metadata:       json.RawMessage(link.Metadata),
		Status:         link.Status(now),
	}
}

func (s *ShareLinkService) log(ctx context.Context) *zap.Logger {
	if id := requestid.FromContext(ctx); id != "" {
		return s.logger.With(zap.String("request_id", id))
	}
	return s.logger
}

func (s *ShareLinkService) linkURL(token string) string {
	return s.config.BaseURL + "/s/" + token
}

func (s *ShareLinkService) notFoundError() *appErrors.Error {
	if s.config.ConcealNotFound {
		return appErrors.Clone(appErrors.ErrLinkAuth, "invalid link or password")
	}
	return appErrors.ErrLinkNotFound
}

func (s *ShareLinkService) authError() *appErrors.Error {
	if s.config.ConcealNotFound {
		return appErrors.Clone(appErrors.ErrLinkAuth, "invalid link or password")
	}
	return appErrors.ErrLinkAuth
}

// terminalState checks revoked, expired and exhausted in that order.
func terminalState(link *models.ShareLink, now time.Time) (string, *appErrors.Error) {
	switch link.Status(now) {
	case models.LinkStatusRevoked:
		return models.AccessFailureRevoked, appErrors.ErrLinkRevoked
	case models.LinkStatusExpired:
		return models.AccessFailureExpired, appErrors.ErrLinkExpired
	case models.LinkStatusExhausted:
		return models.AccessFailureExhausted, appErrors.ErrLinkExhausted
	default:
		return "", nil
	}
}

func outcomeForReason(reason string) string {
	switch reason {
	case models.AccessFailureRevoked:
		return OutcomeRevoked
	case models.AccessFailureExpired:
		return OutcomeExpired
	case models.AccessFailureExhausted:
		return OutcomeExhausted
	case models.AccessFailureBadPassword:
		return OutcomeBadPassword
	case models.AccessFailureRateLimited:
		return OutcomeRateLimited
	default:
		return reason
	}
}
