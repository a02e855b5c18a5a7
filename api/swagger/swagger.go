package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Weekly timetable generation, timetable reads and exports.",
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
        {"name": "Generator", "description": "Timetable generation runs"},
        {"name": "Timetables", "description": "Class and teacher timetables, exports"},
        {"name": "Catalog", "description": "Curricula, availability and assignments"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness probe (postgres, redis)",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is down"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/generator/runs": {
            "post": {
                "tags": ["Generator"],
                "summary": "Start a timetable generation run",
                "description": "A run in flight is cancelled and replaced.",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Worker not running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/generator/runs/current": {
            "get": {
                "tags": ["Generator"],
                "summary": "Current run status",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RunStatusEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Generator"],
                "summary": "Cancel the current run",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Cancelled", "schema": {"$ref": "#/definitions/RunStatusEnvelope"}},
                    "404": {"description": "No run in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/classes/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Class timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TimetableEnvelope"}},
                    "404": {"description": "Class not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/teachers/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Teacher timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TimetableEnvelope"}},
                    "404": {"description": "Teacher not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/classes/{id}/exports": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Export a class timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "201": {"description": "Signed download link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/{token}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Download a rendered export",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/curricula": {
            "put": {
                "tags": ["Catalog"],
                "summary": "Upsert curricula by grade and subject",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertCurriculaRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/sessions/{session}/availability": {
            "put": {
                "tags": ["Catalog"],
                "summary": "Replace a session availability template",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "session", "in": "path", "required": true, "type": "string", "enum": ["MORNING", "AFTERNOON"]},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AvailabilityRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/teachers/{id}/availability": {
            "put": {
                "tags": ["Catalog"],
                "summary": "Replace a teacher busy grid",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AvailabilityRequest"}}
                ],
                "responses": {"204": {"description": "Saved"}}
            }
        },
        "/api/v1/assignments": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List assignments",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create an assignment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignmentRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Catalog"],
                "summary": "Bulk upsert assignments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {
                        "type": "object",
                        "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/AssignmentRequest"}}}
                    }}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/assignments/{id}": {
            "delete": {
                "tags": ["Catalog"],
                "summary": "Delete an assignment and its scheduled periods",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "RunStatus": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "phase": {"type": "string", "enum": ["IDLE", "LOADING", "BUILDING", "VALIDATING", "SERIALIZING", "RUNNING", "COLLECTING", "PERSISTING", "DONE", "FAILED", "CANCELLED"]},
                "percent": {"type": "integer"},
                "message": {"type": "string"},
                "error": {"$ref": "#/definitions/APIError"},
                "tasks": {"type": "integer"},
                "periods": {"type": "integer"},
                "placed": {"type": "integer"},
                "persisted": {"type": "integer"},
                "log": {"type": "array", "items": {"type": "string"}},
                "started_at": {"type": "string", "format": "date-time"},
                "finished_at": {"type": "string", "format": "date-time"}
            }
        },
        "RunStatusEnvelope": {
            "type": "object",
            "properties": {"data": {"$ref": "#/definitions/RunStatus"}}
        },
        "TimetableCell": {
            "type": "object",
            "properties": {
                "assignment_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "class_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "day": {"type": "string"},
                "session": {"type": "string"},
                "period": {"type": "integer"},
                "double": {"type": "boolean"}
            }
        },
        "TimetableEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object",
                    "properties": {
                        "owner_id": {"type": "string"},
                        "owner_name": {"type": "string"},
                        "cells": {"type": "array", "items": {"$ref": "#/definitions/TimetableCell"}}
                    }
                },
                "meta": {"type": "object"}
            }
        },
        "UpsertCurriculaRequest": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "grade_id": {"type": "string"},
                            "subject_id": {"type": "string"},
                            "periods_per_week": {"type": "integer"},
                            "should_be_doubled": {"type": "boolean"}
                        }
                    }
                }
            }
        },
        "AvailabilityRequest": {
            "type": "object",
            "properties": {
                "availability": {"description": "60 character bit string (1 = busy) or a 6x10 boolean matrix"}
            }
        },
        "AssignmentRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "teacher_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "class_id": {"type": "string"}
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
