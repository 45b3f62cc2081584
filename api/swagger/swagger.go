package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Exam Analytics API",
        "description": "Ingests exam responses and answer keys, scores them and serves leaderboards.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Ingestion", "description": "CSV upload and scoring pipeline"},
        {"name": "Reports", "description": "Leaderboards and analytics views"},
        {"name": "Ops", "description": "Probes and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Ops"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Ops"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Ops"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/ingestion/upload": {
            "post": {
                "tags": ["Ingestion"],
                "summary": "Ingest exam responses and answer key",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "sr_file", "in": "formData", "type": "file", "required": true, "description": "Student responses (SR.csv)"},
                    {"name": "ak_file", "in": "formData", "type": "file", "required": true, "description": "Answer key (AK.csv)"}
                ],
                "responses": {
                    "200": {"description": "Data loaded", "schema": {"$ref": "#/definitions/StatusBody"}},
                    "400": {"description": "Missing or malformed file", "schema": {"$ref": "#/definitions/StatusBody"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/StatusBody"}},
                    "403": {"description": "Role not permitted", "schema": {"$ref": "#/definitions/StatusBody"}},
                    "405": {"description": "Method not allowed", "schema": {"$ref": "#/definitions/StatusBody"}},
                    "500": {"description": "Ingestion failed and was rolled back", "schema": {"$ref": "#/definitions/StatusBody"}}
                }
            }
        },
        "/load-all-data/": {
            "post": {
                "tags": ["Ingestion"],
                "summary": "Ingest exam responses and answer key (legacy path)",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "sr_file", "in": "formData", "type": "file", "required": true, "description": "Student responses (SR.csv)"},
                    {"name": "ak_file", "in": "formData", "type": "file", "required": true, "description": "Answer key (AK.csv)"}
                ],
                "responses": {
                    "200": {"description": "Data loaded", "schema": {"$ref": "#/definitions/StatusBody"}},
                    "400": {"description": "Missing or malformed file", "schema": {"$ref": "#/definitions/StatusBody"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/StatusBody"}},
                    "403": {"description": "Role not permitted", "schema": {"$ref": "#/definitions/StatusBody"}},
                    "405": {"description": "Method not allowed", "schema": {"$ref": "#/definitions/StatusBody"}},
                    "500": {"description": "Ingestion failed and was rolled back", "schema": {"$ref": "#/definitions/StatusBody"}}
                }
            }
        },
        "/api/v1/reports/leaderboard": {
            "get": {
                "tags": ["Reports"],
                "summary": "Overall leaderboard",
                "parameters": [
                    {"name": "institution", "in": "query", "type": "string"},
                    {"name": "batch", "in": "query", "type": "string"},
                    {"name": "student_class", "in": "query", "type": "string"},
                    {"name": "section", "in": "query", "type": "string"},
                    {"name": "test_type", "in": "query", "type": "string"},
                    {"name": "test_code", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LeaderboardEnvelope"}},
                    "400": {"description": "Invalid filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reports/leaderboard/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export overall leaderboard",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "required": true},
                    {"name": "institution", "in": "query", "type": "string"},
                    {"name": "batch", "in": "query", "type": "string"},
                    {"name": "student_class", "in": "query", "type": "string"},
                    {"name": "section", "in": "query", "type": "string"},
                    {"name": "test_type", "in": "query", "type": "string"},
                    {"name": "test_code", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}},
                    "400": {"description": "Invalid filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reports/subjects/leaderboard": {
            "get": {
                "tags": ["Reports"],
                "summary": "Subject leaderboard",
                "parameters": [
                    {"name": "institution", "in": "query", "type": "string"},
                    {"name": "batch", "in": "query", "type": "string"},
                    {"name": "student_class", "in": "query", "type": "string"},
                    {"name": "section", "in": "query", "type": "string"},
                    {"name": "test_type", "in": "query", "type": "string"},
                    {"name": "test_code", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reports/dashboard": {
            "get": {
                "tags": ["Reports"],
                "summary": "Dashboard cards",
                "parameters": [
                    {"name": "institution", "in": "query", "type": "string"},
                    {"name": "batch", "in": "query", "type": "string"},
                    {"name": "student_class", "in": "query", "type": "string"},
                    {"name": "section", "in": "query", "type": "string"},
                    {"name": "test_type", "in": "query", "type": "string"},
                    {"name": "test_code", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reports/risk": {
            "get": {
                "tags": ["Reports"],
                "summary": "Student risk bands",
                "parameters": [
                    {"name": "institution", "in": "query", "type": "string"},
                    {"name": "batch", "in": "query", "type": "string"},
                    {"name": "student_class", "in": "query", "type": "string"},
                    {"name": "section", "in": "query", "type": "string"},
                    {"name": "test_type", "in": "query", "type": "string"},
                    {"name": "test_code", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reports/score-distribution": {
            "get": {
                "tags": ["Reports"],
                "summary": "Score band distribution",
                "parameters": [
                    {"name": "institution", "in": "query", "type": "string"},
                    {"name": "batch", "in": "query", "type": "string"},
                    {"name": "student_class", "in": "query", "type": "string"},
                    {"name": "section", "in": "query", "type": "string"},
                    {"name": "test_type", "in": "query", "type": "string"},
                    {"name": "test_code", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reports/neet-readiness": {
            "get": {
                "tags": ["Reports"],
                "summary": "Qualifying score readiness",
                "parameters": [
                    {"name": "institution", "in": "query", "type": "string"},
                    {"name": "batch", "in": "query", "type": "string"},
                    {"name": "student_class", "in": "query", "type": "string"},
                    {"name": "section", "in": "query", "type": "string"},
                    {"name": "test_type", "in": "query", "type": "string"},
                    {"name": "test_code", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reports/qndm": {
            "get": {
                "tags": ["Reports"],
                "summary": "Question analytics matrix",
                "parameters": [
                    {"name": "test_type", "in": "query", "type": "string"},
                    {"name": "month", "in": "query", "type": "string", "description": "YYYY-MM"},
                    {"name": "test_code", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reports/questions/detail": {
            "get": {
                "tags": ["Reports"],
                "summary": "Question answer distribution",
                "parameters": [
                    {"name": "test_code", "in": "query", "type": "string", "required": true},
                    {"name": "question_number", "in": "query", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Question not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reports/filters": {
            "get": {
                "tags": ["Reports"],
                "summary": "Available filter values",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "IngestionSummary": {
            "type": "object",
            "properties": {
                "response_rows": {"type": "integer"},
                "response_rows_skipped": {"type": "integer"},
                "malformed_records": {"type": "integer"},
                "institutions": {"type": "integer"},
                "batches": {"type": "integer"},
                "students_created": {"type": "integer"},
                "tests": {"type": "integer"},
                "responses": {"type": "integer"},
                "answer_key_rows": {"type": "integer"},
                "answer_key_skipped": {"type": "integer"},
                "questions": {"type": "integer"},
                "responses_rescored": {"type": "integer"},
                "test_performances": {"type": "integer"},
                "subject_performances": {"type": "integer"},
                "stale_subjects_pruned": {"type": "integer"},
                "ranks_updated": {"type": "integer"},
                "subject_ranks_updated": {"type": "integer"}
            }
        },
        "StatusBody": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["success", "error"]},
                "message": {"type": "string"},
                "run_id": {"type": "string"},
                "summary": {"$ref": "#/definitions/IngestionSummary"}
            }
        },
        "LeaderboardEntry": {
            "type": "object",
            "properties": {
                "rank": {"type": "integer"},
                "student_id": {"type": "integer"},
                "student_name": {"type": "string"},
                "student_class": {"type": "string"},
                "section": {"type": "string"},
                "tests_taken": {"type": "integer"},
                "total_score": {"type": "number"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
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
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "LeaderboardEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/LeaderboardEntry"}},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
