package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Teacher Attendance Presence API",
        "description": "Attendance status aggregation over biometric scans and leave records",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Attendance", "description": "Daily attendance aggregation"}
    ],
    "paths": {
        "/attendance/summary": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Aggregated attendance counts for one day",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "description": "YYYY-MM-DD, defaults to today"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/history": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Daily summaries for a trailing window ending today",
                "parameters": [
                    {"name": "days", "in": "query", "type": "integer", "description": "Trailing days before today, default 14"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/detail": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Per-teacher status for one day",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "description": "YYYY-MM-DD, defaults to today"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/detail/export": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Download the per-teacher status table as CSV or PDF",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "description": "YYYY-MM-DD, defaults to today"},
                    {"name": "format", "in": "query", "type": "string", "description": "csv or pdf, default csv"}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/attendance/scans": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record a simulated check-in scan",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RecordScanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "DailySummary": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "total": {"type": "integer"},
                "present": {"type": "integer"},
                "absent": {"type": "integer"},
                "on_leave": {"type": "integer"}
            }
        },
        "TeacherStatusRow": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "name": {"type": "string"},
                "department": {"type": "string"},
                "status": {"type": "string", "enum": ["Present", "Absent", "On Leave"]}
            }
        },
        "RecordScanRequest": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "device_id": {"type": "string"}
            },
            "required": ["teacher_id"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
