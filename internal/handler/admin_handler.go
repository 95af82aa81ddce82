package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"

	"trade-review/internal/config"
	"trade-review/internal/middleware"
	"trade-review/internal/models"
	"trade-review/internal/repository"
	"trade-review/internal/service"
	"trade-review/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const statsCacheKey = "trade-review:admin:stats"

type AdminHandler struct {
	subRepo      *repository.SubmissionRepository
	userRepo     *repository.UserRepository
	priceRepo    *repository.PriceRepository
	dutyRepo     *repository.DutyRepository
	subService   *service.SubmissionService
	excelService *service.ExcelService
	redis        *redis.Client
	cfg          *config.Config
	log          *logrus.Logger
}

func NewAdminHandler(
	subRepo *repository.SubmissionRepository,
	userRepo *repository.UserRepository,
	priceRepo *repository.PriceRepository,
	dutyRepo *repository.DutyRepository,
	subService *service.SubmissionService,
	excelService *service.ExcelService,
	redisClient *redis.Client,
	cfg *config.Config,
	log *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		subRepo:      subRepo,
		userRepo:     userRepo,
		priceRepo:    priceRepo,
		dutyRepo:     dutyRepo,
		subService:   subService,
		excelService: excelService,
		redis:        redisClient,
		cfg:          cfg,
		log:          log,
	}
}

// ImportPriceList parses an uploaded price list and upserts the valid
// rows. Malformed rows are reported but do not block the rest.
func (h *AdminHandler) ImportPriceList(c *fiber.Ctx) error {
	result, err := h.parseTable(c, h.excelService.ParsePriceList)
	if err != nil {
		return err
	}

	updated, err := h.priceRepo.BulkUpsert(result.Values)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update price list", err)
	}

	h.invalidateStats()
	h.log.WithFields(logrus.Fields{"updated": updated, "errors": len(result.RowErrors)}).Info("price list imported")

	return utils.SuccessResponse(c, "Price list updated successfully", fiber.Map{
		"updated_items": updated,
		"total_items":   result.TotalRows,
		"errors":        result.RowErrors,
	})
}

// ImportDutyRates parses an uploaded duty rate table and upserts the
// valid rows. Zero rates are accepted.
func (h *AdminHandler) ImportDutyRates(c *fiber.Ctx) error {
	result, err := h.parseTable(c, h.excelService.ParseDutyRates)
	if err != nil {
		return err
	}

	updated, err := h.dutyRepo.BulkUpsert(result.Values)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update duty rates", err)
	}

	h.invalidateStats()
	h.log.WithFields(logrus.Fields{"updated": updated, "errors": len(result.RowErrors)}).Info("duty rates imported")

	return utils.SuccessResponse(c, "Duty rates updated successfully", fiber.Map{
		"updated_items": updated,
		"total_items":   result.TotalRows,
		"errors":        result.RowErrors,
	})
}

func (h *AdminHandler) ListPrices(c *fiber.Ctx) error {
	params := utils.GetPaginationParams(c)
	records, total, err := h.priceRepo.FindAll(params.Limit, utils.GetOffset(params.Page, params.Limit))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve price list", err)
	}
	return utils.SuccessResponse(c, "Price list retrieved successfully", fiber.Map{
		"prices":     records,
		"pagination": utils.CalculatePagination(params.Page, params.Limit, int64(total)),
	})
}

func (h *AdminHandler) ListDutyRates(c *fiber.Ctx) error {
	params := utils.GetPaginationParams(c)
	records, total, err := h.dutyRepo.FindAll(params.Limit, utils.GetOffset(params.Page, params.Limit))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve duty rates", err)
	}
	return utils.SuccessResponse(c, "Duty rates retrieved successfully", fiber.Map{
		"duty_rates": records,
		"pagination": utils.CalculatePagination(params.Page, params.Limit, int64(total)),
	})
}

// ListSubmissions returns every user's submissions, newest first, with
// usernames resolved.
func (h *AdminHandler) ListSubmissions(c *fiber.Ctx) error {
	params := utils.GetPaginationParams(c)
	subs, total, err := h.subRepo.List(params.Limit, utils.GetOffset(params.Page, params.Limit), 0, params.Status)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve submissions", err)
	}
	return utils.SuccessResponse(c, "Submissions retrieved successfully", fiber.Map{
		"submissions": subs,
		"pagination":  utils.CalculatePagination(params.Page, params.Limit, int64(total)),
	})
}

// Review applies an approve or reject decision to a pending submission.
func (h *AdminHandler) Review(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid submission ID", err)
	}

	var req models.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	sub, err := h.subService.Review(middleware.Caller(c), id, req)
	if err != nil {
		return submissionError(c, err)
	}

	h.invalidateStats()
	return utils.SuccessResponse(c, "Submission "+string(sub.Status)+" successfully", fiber.Map{
		"submission_id": sub.ID,
		"status":        sub.Status,
	})
}

// Stats returns dashboard counters, cached briefly in Redis when available.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	ctx := context.Background()

	if h.redis != nil {
		if cached, err := h.redis.Get(ctx, statsCacheKey).Result(); err == nil {
			var stats fiber.Map
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return utils.SuccessResponse(c, "Stats retrieved successfully", stats)
			}
		}
	}

	stats, err := h.collectStats()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve stats", err)
	}

	if h.redis != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := h.redis.Set(ctx, statsCacheKey, data, h.cfg.StatsCacheTTL).Err(); err != nil {
				h.log.WithError(err).Warn("failed to cache admin stats")
			}
		}
	}

	return utils.SuccessResponse(c, "Stats retrieved successfully", stats)
}

func (h *AdminHandler) DownloadPriceListTemplate(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.excelService.GeneratePriceListTemplate(&buf); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate template", err)
	}
	return sendWorkbook(c, "price_list_template.xlsx", buf.Bytes())
}

func (h *AdminHandler) DownloadDutyRateTemplate(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.excelService.GenerateDutyRateTemplate(&buf); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate template", err)
	}
	return sendWorkbook(c, "duty_rates_template.xlsx", buf.Bytes())
}

func (h *AdminHandler) collectStats() (fiber.Map, error) {
	total, err := h.subRepo.Count()
	if err != nil {
		return nil, err
	}

	byStatus := fiber.Map{}
	for _, status := range []models.SubmissionStatus{
		models.StatusPending, models.StatusApproved, models.StatusRejected,
		models.StatusSuccess, models.StatusFailed,
	} {
		count, err := h.subRepo.CountByStatus(status)
		if err != nil {
			return nil, err
		}
		byStatus[string(status)+"_submissions"] = count
	}

	users, err := h.userRepo.CountNonAdmins()
	if err != nil {
		return nil, err
	}
	prices, err := h.priceRepo.Count()
	if err != nil {
		return nil, err
	}
	duties, err := h.dutyRepo.Count()
	if err != nil {
		return nil, err
	}

	stats := fiber.Map{
		"total_submissions": total,
		"total_users":       users,
		"total_price_items": prices,
		"total_duty_items":  duties,
	}
	for k, v := range byStatus {
		stats[k] = v
	}
	return stats, nil
}

// parseTable handles the shared multipart plumbing of the two table
// imports. Table files are parsed in-stream and never staged to disk.
func (h *AdminHandler) parseTable(c *fiber.Ctx, parse func(r io.Reader) (*models.TableImportResult, error)) (*models.TableImportResult, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}
	if err := validateUploadFile(file.Filename, file.Size, h.cfg.UploadMaxSize); err != nil {
		return nil, utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	src, err := file.Open()
	if err != nil {
		return nil, utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read uploaded file", err)
	}
	defer src.Close()

	result, err := parse(src)
	if err != nil {
		return nil, utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to parse file", err)
	}
	return result, nil
}

func (h *AdminHandler) invalidateStats() {
	if h.redis == nil {
		return
	}
	if err := h.redis.Del(context.Background(), statsCacheKey).Err(); err != nil {
		h.log.WithError(err).Warn("failed to invalidate stats cache")
	}
}
