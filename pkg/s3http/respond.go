package s3http

import (
	"encoding/xml"
	"net/http"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

func writeXML(w http.ResponseWriter, v any) error {
	enc := xml.NewEncoder(w)
	return enc.Encode(v)
}

func respondXML(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xmlHeader))
	_ = writeXML(w, v)
}
