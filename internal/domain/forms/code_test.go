package forms

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"formdesk/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:forms_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&users.User{}, &Form{}, &FormField{}, &Response{}))
	return db
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("0000"))
	assert.True(t, ValidCode("4217"))
	assert.False(t, ValidCode("421"))
	assert.False(t, ValidCode("42170"))
	assert.False(t, ValidCode("42a7"))
	assert.False(t, ValidCode(""))
	assert.False(t, ValidCode(" 4217"))
}

func TestGenerateCode(t *testing.T) {
	db := newTestDB(t)

	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		code, err := GenerateCode(db)
		require.NoError(t, err)
		assert.True(t, ValidCode(code))

		_, dup := seen[code]
		assert.False(t, dup, "generated code %q twice", code)
		seen[code] = struct{}{}

		require.NoError(t, db.Create(&Form{Code: code, Title: "t", Status: StatusDraft}).Error)
	}
}

func TestDecodeAnswers(t *testing.T) {
	r := &Response{Answers: datatypes.JSON(`{"1":"a@b.com","2":"Ada"}`)}
	answers, err := DecodeAnswers(r)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1": "a@b.com", "2": "Ada"}, answers)

	empty, err := DecodeAnswers(&Response{})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = DecodeAnswers(&Response{Answers: datatypes.JSON(`[1,2]`)})
	assert.Error(t, err)
}

func TestFormIsOpen(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		status   string
		closesAt *time.Time
		want     bool
	}{
		{"open no deadline", StatusOpen, nil, true},
		{"open before deadline", StatusOpen, &future, true},
		{"open past deadline", StatusOpen, &past, false},
		{"draft", StatusDraft, nil, false},
		{"closed", StatusClosed, &future, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Form{Status: tt.status, ClosesAt: tt.closesAt}
			assert.Equal(t, tt.want, f.IsOpen(now))
		})
	}
}

func TestEmailFieldIDs(t *testing.T) {
	f := &Form{Fields: []FormField{
		{ID: 1, Type: FieldTypeText},
		{ID: 2, Type: FieldTypeEmail},
		{ID: 3, Type: FieldTypeSelect},
		{ID: 4, Type: FieldTypeEmail},
	}}
	assert.Equal(t, []uint{2, 4}, f.EmailFieldIDs())

	assert.Empty(t, (&Form{}).EmailFieldIDs())
}
