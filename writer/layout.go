package writer

import (
	"fmt"
	"path"
	"strings"
	"time"

	"pontosflow/models"
)

// PositionFileStem names the merged coordinate file.
const PositionFileStem = "position"

// FileName returns "<stem>_<YYYY-MM-DD>.<ext>".
func FileName(stem string, day time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", stem, models.FormatDay(day), ext)
}

// ParameterFileName names the export file of one parameter stream.
func ParameterFileName(p models.Parameter, day time.Time, ext string) string {
	return FileName(p.ShortName(), day, ext)
}

// PositionFileName names the export file of the paired positions.
func PositionFileName(day time.Time, ext string) string {
	return FileName(PositionFileStem, day, ext)
}

// VesselDayDir is the optional per-export sub directory
// "<vessel_id>_<YYYY-MM-DD>".
func VesselDayDir(vesselID string, day time.Time) string {
	return fmt.Sprintf("%s_%s", vesselID, models.FormatDay(day))
}

// ObjectKey builds the object store key
// "<prefix>/vessel=<id>/date=<YYYY-MM-DD>/<name>".
func ObjectKey(prefix, vesselID string, day time.Time, name string) string {
	key := path.Join(
		prefix,
		fmt.Sprintf("vessel=%s", vesselID),
		fmt.Sprintf("date=%s", models.FormatDay(day)),
		name,
	)
	return strings.TrimLeft(key, "/")
}
