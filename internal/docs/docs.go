// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with: swag init -g internal/http/router.go -o internal/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/user/register": {
            "post": {
                "description": "Creates an account and returns an access token in metadata (also set as the access_token cookie).",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["User"],
                "summary": "Register a new user",
                "operationId": "registerUser",
                "parameters": [
                    {"description": "Registration payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/envelope.SuccessEnvelope"}},
                    "400": {"description": "validation_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}},
                    "409": {"description": "conflict_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}},
                    "500": {"description": "server_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}}
                }
            }
        },
        "/user/login": {
            "post": {
                "description": "Verifies credentials and returns an access token in metadata (also set as the access_token cookie).",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["User"],
                "summary": "Log in",
                "operationId": "loginUser",
                "parameters": [
                    {"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope.SuccessEnvelope"}},
                    "400": {"description": "validation_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}},
                    "401": {"description": "unauthorized_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}}
                }
            }
        },
        "/user": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the authenticated user.",
                "produces": ["application/json"],
                "tags": ["User"],
                "summary": "Current user",
                "operationId": "getUser",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope.SuccessEnvelope"}},
                    "401": {"description": "unauthorized_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}},
                    "404": {"description": "not_found_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}}
                }
            }
        },
        "/tasks": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns a page of the user's tasks, newest first. Supports weak ETag via If-None-Match and may return 304.",
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "List tasks (paginated)",
                "operationId": "listTasks",
                "parameters": [
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"},
                    {"enum": ["pending", "in_progress", "completed"], "type": "string", "description": "Status filter", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope.SuccessEnvelope"}, "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}},
                    "304": {"description": "Not Modified"},
                    "400": {"description": "validation_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}},
                    "401": {"description": "unauthorized_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Creates a task for the current user. Supports safe retries via the Idempotency-Key header.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Create a task",
                "operationId": "createTask",
                "parameters": [
                    {"type": "string", "description": "Idempotency key for safe retries (UUID recommended)", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Task payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateTaskRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/envelope.SuccessEnvelope"}, "headers": {"Idempotency-Replayed": {"type": "string", "description": "true when the response replays an earlier create"}}},
                    "400": {"description": "validation_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}},
                    "401": {"description": "unauthorized_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}},
                    "409": {"description": "conflict_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}}
                }
            }
        },
        "/tasks/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Get a task",
                "operationId": "getTask",
                "parameters": [
                    {"minimum": 1, "type": "integer", "description": "Task ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope.SuccessEnvelope"}},
                    "400": {"description": "validation_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}},
                    "404": {"description": "not_found_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Applies a partial update; omitted fields are left unchanged.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Update a task",
                "operationId": "updateTask",
                "parameters": [
                    {"minimum": 1, "type": "integer", "description": "Task ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateTaskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope.SuccessEnvelope"}},
                    "400": {"description": "validation_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}},
                    "404": {"description": "not_found_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Delete a task",
                "operationId": "deleteTask",
                "parameters": [
                    {"minimum": 1, "type": "integer", "description": "Task ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope.SuccessEnvelope"}},
                    "400": {"description": "validation_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}},
                    "404": {"description": "not_found_error", "schema": {"$ref": "#/definitions/envelope.ErrorEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "apperr.Detail": {
            "type": "object",
            "properties": {
                "error_code": {"type": "string", "example": "validation_error"},
                "error_message": {"type": "string", "example": "Invalid request data"},
                "error_type": {"type": "string", "example": "validation"},
                "debug_message": {"type": "string", "example": "title is required"}
            }
        },
        "envelope.ErrorEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": false},
                "error_id": {"type": "string", "example": "req_20250720_103045_abc123"},
                "api_version": {"type": "string", "example": "v1"},
                "route_group": {"type": "string", "example": "task"},
                "timestamp": {"type": "string", "example": "2025-07-20T10:30:45.123456Z"},
                "error_detail": {"$ref": "#/definitions/apperr.Detail"},
                "status_code": {"type": "integer", "example": 400}
            }
        },
        "envelope.SuccessEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "api_version": {"type": "string", "example": "v1"},
                "route_group": {"type": "string", "example": "task"},
                "timestamp": {"type": "string", "example": "2025-07-20T10:30:45.123456Z"},
                "correlation_id": {"type": "string", "example": "req_20250720_103045_abc123"},
                "message": {"type": "string", "example": "Task created"},
                "data": {},
                "metadata": {"type": "object", "additionalProperties": true},
                "status_code": {"type": "integer", "example": 201}
            }
        },
        "handlers.RegisterRequest": {
            "type": "object",
            "properties": {"user": {"$ref": "#/definitions/handlers.RegisterUser"}}
        },
        "handlers.RegisterUser": {
            "type": "object",
            "required": ["email", "password", "username"],
            "properties": {
                "username": {"type": "string", "maxLength": 80, "example": "alice"},
                "email": {"type": "string", "maxLength": 100, "example": "alice@example.com"},
                "password": {"type": "string", "maxLength": 72, "minLength": 8, "example": "correct-horse"}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "properties": {"user": {"$ref": "#/definitions/handlers.LoginUser"}}
        },
        "handlers.LoginUser": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "username": {"type": "string", "example": "alice"},
                "password": {"type": "string", "example": "correct-horse"}
            }
        },
        "handlers.CreateTaskRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "title": {"type": "string", "example": "Write release notes"},
                "description": {"type": "string", "example": "Cover the API changes"},
                "due_date": {"type": "string", "example": "2025-09-30"},
                "status": {"type": "string", "enum": ["pending", "in_progress", "completed"], "example": "pending"}
            }
        },
        "handlers.UpdateTaskRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string", "example": "Write better release notes"},
                "description": {"type": "string", "example": ""},
                "due_date": {"type": "string", "example": "2025-10-15"},
                "status": {"type": "string", "enum": ["pending", "in_progress", "completed"], "example": "in_progress"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Task API",
	Description:      "Multi-tenant task management API with canonical success and error envelopes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
