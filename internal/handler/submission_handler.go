package handler

import (
	"bytes"
	"database/sql"
	"errors"
	"path/filepath"
	"strconv"

	"trade-review/internal/config"
	"trade-review/internal/middleware"
	"trade-review/internal/models"
	"trade-review/internal/repository"
	"trade-review/internal/service"
	"trade-review/internal/storage"
	"trade-review/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type SubmissionHandler struct {
	subRepo      *repository.SubmissionRepository
	subService   *service.SubmissionService
	excelService *service.ExcelService
	store        *storage.LocalStore
	cfg          *config.Config
}

func NewSubmissionHandler(
	subRepo *repository.SubmissionRepository,
	subService *service.SubmissionService,
	excelService *service.ExcelService,
	store *storage.LocalStore,
	cfg *config.Config,
) *SubmissionHandler {
	return &SubmissionHandler{
		subRepo:      subRepo,
		subService:   subService,
		excelService: excelService,
		store:        store,
		cfg:          cfg,
	}
}

// Upload stages a packing list file, parses it and reconciles the items
// against the price list in one request. The staged file is removed again
// if the submission cannot be persisted.
func (h *SubmissionHandler) Upload(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)

	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}
	if err := validateUploadFile(file.Filename, file.Size, h.cfg.UploadMaxSize); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	src, err := file.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read uploaded file", err)
	}
	defer src.Close()

	path, err := h.store.Save(file.Filename, src)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save file", err)
	}

	stored, err := h.store.Open(path)
	if err != nil {
		h.store.Delete(path)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read stored file", err)
	}
	defer stored.Close()

	sub, result, err := h.subService.Process(userID, file.Filename, path, stored)
	if err != nil {
		if sub == nil {
			// Nothing was persisted; do not leave the staged file behind.
			h.store.Delete(path)
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process file", err)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":       false,
			"message":       "Failed to parse file",
			"error":         err.Error(),
			"submission_id": sub.ID,
			"status":        sub.Status,
		})
	}

	summary := h.subService.Summarize(result.Items)
	return utils.SuccessResponse(c, "File uploaded and processed successfully", fiber.Map{
		"submission_id": sub.ID,
		"status":        sub.Status,
		"summary":       summary,
	})
}

func (h *SubmissionHandler) List(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)

	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	subs, total, err := h.subRepo.List(params.Limit, offset, userID, params.Status)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve submissions", err)
	}

	return utils.SuccessResponse(c, "Submissions retrieved successfully", fiber.Map{
		"submissions": subs,
		"pagination":  utils.CalculatePagination(params.Page, params.Limit, int64(total)),
	})
}

func (h *SubmissionHandler) Detail(c *fiber.Ctx) error {
	sub, err := h.getOwned(c)
	if err != nil {
		return err
	}

	items, err := sub.Items()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to decode stored items", err)
	}

	resp := fiber.Map{
		"submission": sub,
		"items":      items,
	}
	if len(items) > 0 {
		resp["validation_summary"] = h.subService.Summarize(items)
	}

	return utils.SuccessResponse(c, "Submission retrieved successfully", resp)
}

func (h *SubmissionHandler) EditItem(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid submission ID", err)
	}
	row, err := strconv.Atoi(c.Params("row"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid item row", err)
	}

	var edit models.ItemEdit
	if err := c.BodyParser(&edit); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	sub, result, err := h.subService.EditItem(middleware.Caller(c), id, row, edit)
	if err != nil {
		return submissionError(c, err)
	}

	return utils.SuccessResponse(c, "Item updated successfully", fiber.Map{
		"submission_id": sub.ID,
		"status":        sub.Status,
		"summary":       h.subService.Summarize(result.Items),
	})
}

func (h *SubmissionHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid submission ID", err)
	}

	if err := h.subService.Delete(middleware.Caller(c), id); err != nil {
		return submissionError(c, err)
	}

	return utils.SuccessResponse(c, "Submission deleted successfully", nil)
}

func (h *SubmissionHandler) DownloadTemplate(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.excelService.GeneratePackingListTemplate(&buf); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate template", err)
	}
	return sendWorkbook(c, "packing_list_template.xlsx", buf.Bytes())
}

// getOwned loads a submission and enforces that the caller owns it or is
// an admin.
func (h *SubmissionHandler) getOwned(c *fiber.Ctx) (*models.Submission, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return nil, utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid submission ID", err)
	}

	sub, err := h.subRepo.GetByID(id)
	if err != nil {
		return nil, utils.ErrorResponse(c, fiber.StatusNotFound, "Submission not found", err)
	}

	actor := middleware.Caller(c)
	if !actor.Admin && sub.UserID != actor.UserID {
		return nil, utils.ErrorResponse(c, fiber.StatusForbidden, "Not allowed to access this submission", nil)
	}

	return sub, nil
}

// submissionError maps service errors onto HTTP statuses.
func submissionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Submission not found", nil)
	case errors.Is(err, service.ErrForbidden):
		return utils.ErrorResponse(c, fiber.StatusForbidden, err.Error(), nil)
	case errors.Is(err, service.ErrLocked), errors.Is(err, service.ErrNotPending):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrCommentRequired),
		errors.Is(err, service.ErrCommentTooLong),
		errors.Is(err, service.ErrItemNotFound):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	default:
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Operation failed", err)
	}
}

func validateUploadFile(filename string, size int64, maxSize int) error {
	ext := filepath.Ext(filename)
	if ext != ".xlsx" && ext != ".xls" {
		return errors.New("only Excel files (.xlsx, .xls) are allowed")
	}
	if size > int64(maxSize) {
		return errors.New("file size exceeds maximum limit")
	}
	return nil
}

func sendWorkbook(c *fiber.Ctx, filename string, data []byte) error {
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}
