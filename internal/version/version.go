package version

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Проставляются линковщиком: -ldflags "-X tactics-sim/internal/version.BuildDate=..."
var (
	BuildDate   string // YYYY-MM-DD (UTC)
	BuildCommit string
	BuildBranch string
	BuildCI     string
)

// buildEpoch - день, от которого считается номер сборки.
var buildEpoch = time.Date(2025, time.December, 4, 0, 0, 0, 0, time.UTC)

// VersionInfo - метаданные сборки. Отдаётся на /version.
type VersionInfo struct {
	BuildID    int    `json:"buildId"`
	BuildDate  string `json:"buildDate"`
	Commit     string `json:"commit"`
	Branch     string `json:"branch"`
	CI         string `json:"ci"`
	Calculated bool   `json:"calculated"`
	Error      string `json:"error,omitempty"`
}

// CalculateBuildID - число дней от buildEpoch до BuildDate.
// Номер пишется в заголовок сохранения.
func CalculateBuildID() (int, error) {
	if BuildDate == "" {
		return 0, fmt.Errorf("BuildDate is empty")
	}

	t, err := time.ParseInLocation("2006-01-02", BuildDate, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid BuildDate %q: %w", BuildDate, err)
	}
	if t.Before(buildEpoch) {
		return 0, fmt.Errorf("BuildDate %s is before epoch", BuildDate)
	}

	// Часы, а не AddDate: обе даты в UTC
	return int(t.Sub(buildEpoch).Hours() / 24), nil
}

func Info() VersionInfo {
	info := VersionInfo{
		BuildDate: BuildDate,
		Commit:    BuildCommit,
		Branch:    BuildBranch,
		CI:        BuildCI,
	}
	id, err := CalculateBuildID()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.BuildID = id
	info.Calculated = true
	return info
}

// SaveCompatible: сохранение читается, если его записала эта же или
// более ранняя сборка. Локальная сборка (номер 0) читает всё.
func SaveCompatible(saveBuild int) bool {
	id, err := CalculateBuildID()
	if err != nil || id == 0 {
		return true
	}
	return saveBuild <= id
}

// Fields - метаданные сборки для стартовой записи лога.
func Fields() logrus.Fields {
	info := Info()
	return logrus.Fields{
		"build_id":  info.BuildID,
		"commit":    coalesce(info.Commit, "unknown"),
		"branch":    coalesce(info.Branch, "unknown"),
		"ci":        coalesce(info.CI, "local"),
		"build_err": info.Error,
	}
}

// String - строка сборки для человека.
func String() string {
	info := Info()
	if !info.Calculated {
		return fmt.Sprintf("Build unknown (%s)", info.Error)
	}
	return fmt.Sprintf(
		"Build %d (%s) commit[%s] branch[%s] ci[%s]",
		info.BuildID,
		info.BuildDate,
		coalesce(info.Commit, "unknown"),
		coalesce(info.Branch, "unknown"),
		coalesce(info.CI, "local"),
	)
}

func coalesce(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
