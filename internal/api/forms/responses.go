package forms

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"formdesk/database"
	domain "formdesk/internal/domain/forms"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type responseDTO struct {
	ID          string            `json:"id"`
	Answers     map[string]string `json:"answers"`
	CheckedIn   bool              `json:"checked_in"`
	SubmittedAt string            `json:"submitted_at"`
}

// GET /forms/:id/responses
func ListResponses(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	form, ok := loadOwnedForm(c, userID)
	if !ok {
		return
	}

	var responses []domain.Response
	if err := database.DB.
		Where("form_id = ?", form.ID).
		Order("created_at ASC").
		Find(&responses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load responses"})
		return
	}

	out := make([]responseDTO, 0, len(responses))
	for i := range responses {
		answers, err := domain.DecodeAnswers(&responses[i])
		if err != nil {
			answers = map[string]string{}
		}
		out = append(out, responseDTO{
			ID:          responses[i].PublicID,
			Answers:     answers,
			CheckedIn:   responses[i].CheckedIn,
			SubmittedAt: responses[i].CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	c.JSON(http.StatusOK, out)
}

// GET /forms/:id/responses/export — CSV with one column per field.
func ExportResponses(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	form, ok := loadOwnedForm(c, userID)
	if !ok {
		return
	}

	var responses []domain.Response
	if err := database.DB.
		Where("form_id = ?", form.ID).
		Order("created_at ASC").
		Find(&responses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load responses"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=form-%s-responses.csv", form.Code))

	w := csv.NewWriter(c.Writer)
	defer w.Flush()

	header := []string{"submitted_at", "checked_in"}
	for _, f := range form.Fields {
		header = append(header, f.Label)
	}
	w.Write(header)

	for i := range responses {
		answers, err := domain.DecodeAnswers(&responses[i])
		if err != nil {
			continue
		}
		row := []string{
			responses[i].CreatedAt.Format("2006-01-02 15:04:05"),
			strconv.FormatBool(responses[i].CheckedIn),
		}
		for _, f := range form.Fields {
			row = append(row, answers[strconv.FormatUint(uint64(f.ID), 10)])
		}
		w.Write(row)
	}
}

// POST /forms/:id/responses/:rid/checkin — toggles the check-in flag, the
// one mutation a response allows.
func ToggleCheckIn(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	form, ok := loadOwnedForm(c, userID)
	if !ok {
		return
	}

	var response domain.Response
	if err := database.DB.
		Where("form_id = ? AND public_id = ?", form.ID, c.Param("rid")).
		First(&response).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Response not found"})
		return
	}

	if err := database.DB.Model(&response).Update("checked_in", !response.CheckedIn).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update check-in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": response.PublicID, "checked_in": !response.CheckedIn})
}

func marshalOptions(options []string) (datatypes.JSON, error) {
	raw, err := json.Marshal(options)
	return datatypes.JSON(raw), err
}
