package generation

// Step identifies the pipeline stage currently running. Steps map to the
// localized progress labels shown while a generation is in flight.
type Step int

const (
	StepNone Step = iota
	StepEncoding
	StepSubmitting
	StepWaiting
	StepDownloading
)

var progressLabels = map[string]map[Step]string{
	"en": {
		StepEncoding:    "Preparing your image...",
		StepSubmitting:  "Sending your request to the video model...",
		StepWaiting:     "Generating video... this may take a few minutes.",
		StepDownloading: "Fetching your video...",
	},
	"id": {
		StepEncoding:    "Menyiapkan gambar Anda...",
		StepSubmitting:  "Mengirim permintaan ke model video...",
		StepWaiting:     "Membuat video... ini bisa memakan waktu beberapa menit.",
		StepDownloading: "Mengambil video Anda...",
	},
}

// ProgressLabel returns the human-readable label for a step in the given
// locale, falling back to English for unknown locales and to the empty string
// when no step is active.
func ProgressLabel(step Step, locale string) string {
	labels, ok := progressLabels[locale]
	if !ok {
		labels = progressLabels["en"]
	}
	return labels[step]
}
