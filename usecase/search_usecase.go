package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tubequeue/domain/apperror"
	"tubequeue/domain/dto"
	"tubequeue/domain/model"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/logger"
)

const (
	minQueryLength  = 2
	musicCategoryID = "10"
)

type ISearchUsecase interface {
	Search(ctx context.Context, q string, maxResults int64) (*dto.YouTubeSearchResponse, error)
}

type SearchUsecase struct {
	youtube        repository.IYouTube
	cache          repository.ISearchCache // optional
	cacheTTL       time.Duration
	defaultResults int64
	maxResults     int64
	timeout        time.Duration
}

func NewSearchUsecase(youtube repository.IYouTube, defaultResults, maxResults int64, timeout time.Duration) *SearchUsecase {
	if defaultResults <= 0 {
		defaultResults = 8
	}
	if maxResults < defaultResults {
		maxResults = defaultResults
	}
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}
	return &SearchUsecase{youtube: youtube, defaultResults: defaultResults, maxResults: maxResults, timeout: timeout}
}

// WithCache enables the result cache (fluent)
func (u *SearchUsecase) WithCache(cache repository.ISearchCache, ttl time.Duration) *SearchUsecase {
	u.cache = cache
	u.cacheTTL = ttl
	return u
}

func (u *SearchUsecase) Search(ctx context.Context, q string, maxResults int64) (*dto.YouTubeSearchResponse, error) {
	q = strings.TrimSpace(q)
	res := &dto.YouTubeSearchResponse{Videos: []model.Video{}, Query: q}
	if utf8.RuneCountInString(q) < minQueryLength {
		return res, nil
	}
	if maxResults <= 0 {
		maxResults = u.defaultResults
	}
	if maxResults > u.maxResults {
		maxResults = u.maxResults
	}

	key := strings.ToLower(q) + "|" + strconv.FormatInt(maxResults, 10)
	if u.cache != nil {
		videos, err := u.cache.GetSearch(ctx, key)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("search cache read failed")
		} else if videos != nil {
			res.Videos = videos
			res.Source = "cache"
			return res, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	videos, err := u.youtube.SearchVideos(callCtx, &dto.YouTubeSearchRequest{Q: q, MaxResults: maxResults, CategoryID: musicCategoryID})
	if err != nil {
		logger.GetLogger().WithField("query", q).WithField("error", err).Warn("youtube search failed")
		// Search runs on the API key, not a host token: a 403 here is quota
		// or key trouble, never a reason to reconnect the host.
		return nil, searchFailure(err)
	}

	if u.cache != nil {
		if err := u.cache.SetSearch(ctx, key, videos, u.cacheTTL); err != nil {
			logger.GetLogger().WithField("error", err).Warn("search cache write failed")
		}
	}
	res.Videos = videos
	res.Source = "youtube"
	return res, nil
}

func searchFailure(err error) error {
	var perr *model.PlatformError
	if errors.As(err, &perr) {
		return apperror.Upstream(perr.Message, err)
	}
	return apperror.Upstream(err.Error(), err)
}
