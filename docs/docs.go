// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/optimizer/main.go -o docs
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
        "/healthz": {
            "get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}
        },
        "/readyz": {
            "get": {"tags": ["health"], "summary": "Readiness check", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/v1/rules": {
            "get": {
                "tags": ["rules"],
                "summary": "List optimization rules",
                "parameters": [
                    {"type": "integer", "name": "connection_id", "in": "query"},
                    {"type": "integer", "name": "brand_id", "in": "query"},
                    {"type": "boolean", "name": "enabled", "in": "query"},
                    {"type": "string", "name": "rule_type", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["rules"],
                "summary": "Create an optimization rule",
                "consumes": ["application/json"],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/v1/rules/{id}": {
            "get": {"tags": ["rules"], "summary": "Get an optimization rule", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "patch": {"tags": ["rules"], "summary": "Update an optimization rule", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["rules"], "summary": "Delete an optimization rule", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/rules/{id}/execute": {
            "post": {"tags": ["rules"], "summary": "Execute a rule now", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/rules/{id}/executions": {
            "get": {"tags": ["rules"], "summary": "List executions of a rule", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "status", "in": "query"}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/executions/{id}": {
            "get": {"tags": ["executions"], "summary": "Get an execution log", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/api/v1/switches/{name}": {
            "put": {"tags": ["switches"], "summary": "Toggle a feature switch", "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}, {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/api/cron/optimization": {
            "get": {"tags": ["cron"], "summary": "Run due optimization rules", "parameters": [{"type": "string", "name": "Authorization", "in": "header", "required": true}], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Ads Optimizer API",
	Description:      "Optimization rules, manual execution, and the scheduled sweep.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
