package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Compliance Disclosure Links API",
        "description": "Password-protected, expiring links that disclose compliance records to external parties",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "ShareLinks", "description": "Issue and manage disclosure links"},
        {"name": "Disclosure", "description": "Recipient redemption"}
    ],
    "paths": {
        "/links": {
            "get": {
                "tags": ["ShareLinks"],
                "summary": "List disclosure links",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "created_by", "in": "query", "type": "string"},
                    {"name": "resource_type", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["ShareLinks"],
                "summary": "Issue a disclosure link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateShareLinkRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/links/{token}": {
            "get": {
                "tags": ["ShareLinks"],
                "summary": "Get a disclosure link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["ShareLinks"],
                "summary": "Revoke a disclosure link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Revoked"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/links/{token}/access-logs": {
            "get": {
                "tags": ["ShareLinks"],
                "summary": "List access attempts for a link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/s/{token}": {
            "post": {
                "tags": ["Disclosure"],
                "summary": "Redeem a disclosure link",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"},
                    {"name": "X-Link-Password", "in": "header", "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ResolveShareLinkRequest"}}
                ],
                "responses": {
                    "200": {"description": "Disclosed records", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid link or password", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Link not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Link expired, revoked or exhausted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Too many attempts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Storage unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateShareLinkRequest": {
            "type": "object",
            "properties": {
                "resource_type": {"type": "string"},
                "resource_id": {"type": "array", "items": {"type": "string"}},
                "password": {"type": "string"},
                "expires_in": {"type": "string", "enum": ["1h", "1d", "1w", "custom"]},
                "custom_expiration": {"type": "string", "format": "date-time"},
                "one_time_use": {"type": "boolean"},
                "max_access_count": {"type": "integer", "minimum": 1},
                "watermark": {"type": "boolean"},
                "metadata": {"type": "object"}
            },
            "required": ["resource_type", "resource_id", "password", "expires_in"]
        },
        "ResolveShareLinkRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"}
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
