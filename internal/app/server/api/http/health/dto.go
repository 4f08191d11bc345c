package health

type Input struct{}

type Output struct {
	Body Response
}

type Response struct {
	Status   string `json:"status" example:"OK" doc:"Сервер принимает записи"`
	Database string `json:"database,omitempty" example:"OK" doc:"Доступность базы"`
	// Transcription enabled, если настроено распознавание речи; иначе записи ждут в pending
	Transcription string `json:"transcription" enum:"enabled,disabled" doc:"Фоновая расшифровка"`
}
