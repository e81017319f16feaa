package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SwipeClean Triage API",
        "description": "Photo triage backend: review sessions, decision lists, clustering and reports",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "Session", "description": "One-at-a-time photo review"},
        {"name": "Decisions", "description": "Deleted and kept lists, recovery, purge"},
        {"name": "Library", "description": "Photo pages and derived views"},
        {"name": "Exports", "description": "Triage report generation"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Token expired or revoked"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user info",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/session/start": {
            "post": {
                "tags": ["Session"],
                "summary": "Start a review session",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Library load failed"}
                }
            }
        },
        "/session": {
            "get": {
                "tags": ["Session"],
                "summary": "Session snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionSnapshot"}},
                    "404": {"description": "No active session"}
                }
            }
        },
        "/session/decide": {
            "post": {
                "tags": ["Session"],
                "summary": "Decide the current photo",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecideRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionSnapshot"}}
                }
            }
        },
        "/session/skip": {
            "post": {
                "tags": ["Session"],
                "summary": "Skip the current photo",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionSnapshot"}}
                }
            }
        },
        "/session/undo": {
            "post": {
                "tags": ["Session"],
                "summary": "Undo the last decision",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionSnapshot"}}
                }
            }
        },
        "/session/resume": {
            "post": {
                "tags": ["Session"],
                "summary": "Resume a failed library load",
                "responses": {
                    "204": {"description": "load retry scheduled"}
                }
            }
        },
        "/decisions": {
            "get": {
                "tags": ["Decisions"],
                "summary": "Full decision state",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/decisions/deleted": {
            "get": {
                "tags": ["Decisions"],
                "summary": "List soft-deleted photos",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/decisions/kept": {
            "get": {
                "tags": ["Decisions"],
                "summary": "List kept photo ids",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/decisions/recover": {
            "post": {
                "tags": ["Decisions"],
                "summary": "Recover soft-deleted photos",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecoverRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/decisions/recover-all": {
            "post": {
                "tags": ["Decisions"],
                "summary": "Recover every soft-deleted photo",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/decisions/purge": {
            "post": {
                "tags": ["Decisions"],
                "summary": "Permanently delete photos",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PurgeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Permanent delete failed"}
                }
            }
        },
        "/library/photos": {
            "get": {
                "tags": ["Library"],
                "summary": "List library photos",
                "parameters": [
                    {"name": "cursor", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/library/similar": {
            "get": {
                "tags": ["Library"],
                "summary": "List similar-photo groups",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/library/low-quality": {
            "get": {
                "tags": ["Library"],
                "summary": "List low-quality photos",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Request a triage report",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Get export job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Job not found"}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a generated report",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Report file"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshTokenRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "DecideRequest": {
            "type": "object",
            "required": ["outcome"],
            "properties": {
                "outcome": {"type": "string", "enum": ["kept", "deleted"]}
            }
        },
        "RecoverRequest": {
            "type": "object",
            "required": ["ids"],
            "properties": {
                "ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "PurgeRequest": {
            "type": "object",
            "properties": {
                "ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "CreateExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "PhotoRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "location_ref": {"type": "string"},
                "display_name": {"type": "string"},
                "created_at": {"type": "integer", "format": "int64"},
                "width": {"type": "integer"},
                "height": {"type": "integer"}
            }
        },
        "SessionSnapshot": {
            "type": "object",
            "properties": {
                "current": {"$ref": "#/definitions/PhotoRecord"},
                "next": {"$ref": "#/definitions/PhotoRecord"},
                "queue_length": {"type": "integer"},
                "reviewed_count": {"type": "integer"},
                "total_count": {"type": "integer"},
                "progress": {"type": "number"},
                "loaded": {"type": "boolean"},
                "load_error": {"type": "string"}
            }
        },
        "PageInfo": {
            "type": "object",
            "properties": {
                "next_cursor": {"type": "string"},
                "has_more": {"type": "boolean"},
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
                "page": {"$ref": "#/definitions/PageInfo"},
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
