package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TripWatch API",
        "description": "Field technician trip analytics: spreadsheet ingestion, duplicate detection, distance computation and activity reports",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Batches", "description": "Spreadsheet upload and batch management"},
        {"name": "Analytics", "description": "Batch-level aggregates and duplicate review"},
        {"name": "Distances", "description": "Great-circle travel distance computation"},
        {"name": "Technicians", "description": "Per-technician views"},
        {"name": "Reports", "description": "Generated activity reports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unavailable"}
                }
            }
        },
        "/api/v1/batches": {
            "get": {
                "tags": ["Batches"],
                "summary": "List import batches",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Batches"],
                "summary": "Upload a trip spreadsheet (.xlsx, .xls or .csv)",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unreadable or invalid spreadsheet"}
                }
            }
        },
        "/api/v1/batches/{id}": {
            "get": {
                "tags": ["Batches"],
                "summary": "Batch overview with stats and sample rows",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Batches"],
                "summary": "Delete a batch and all derived data",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/batches/{id}/technicians": {
            "get": {
                "tags": ["Batches"],
                "summary": "Technicians discovered in a batch",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/batches/{id}/deduplicate": {
            "post": {
                "tags": ["Analytics"],
                "summary": "Re-run duplicate detection for a batch",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/batches/{id}/duplicates": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Page through flagged duplicate records",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "technician", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/batches/{id}/trip-types": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Event category distribution",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "technician", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/batches/{id}/punch-hours": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Punch-in counts per hour of day",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "technician", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/batches/{id}/punch-pairs": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Matched punch-in/punch-out pairs with shift statistics",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "technician", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/batches/{id}/distances": {
            "get": {
                "tags": ["Distances"],
                "summary": "Stored distance summaries for a batch",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Distances"],
                "summary": "Recompute travel distances for a batch, or one technician of it",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "technician", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/batches/{id}/distances/export": {
            "get": {
                "tags": ["Distances"],
                "summary": "Download batch distances as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Exported file"}
                }
            }
        },
        "/api/v1/technicians/{id}/summary": {
            "get": {
                "tags": ["Technicians"],
                "summary": "Headline numbers for one technician",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/technicians/{id}/punch-log": {
            "get": {
                "tags": ["Technicians"],
                "summary": "Raw punch times grouped by calendar date",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/technicians/{id}/timeline": {
            "get": {
                "tags": ["Technicians"],
                "summary": "Chronological event list",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/technicians/{id}/locations": {
            "get": {
                "tags": ["Technicians"],
                "summary": "Ordered geotagged points",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/technicians/{id}/distance": {
            "get": {
                "tags": ["Technicians"],
                "summary": "Stored distance summary",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/technicians/{id}/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Generate an activity report",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateReportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"},
                    "422": {"description": "Technician has no trip records"}
                }
            }
        },
        "/api/v1/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "List generated reports for a batch",
                "parameters": [
                    {"name": "batch", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reports/{id}/download": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a generated report file",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Report file"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/reports/{id}": {
            "delete": {
                "tags": ["Reports"],
                "summary": "Delete a generated report",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/system/stats": {
            "get": {
                "summary": "Aggregated runtime statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateReportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["pdf", "html"]}
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
