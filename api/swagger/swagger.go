package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "URJCheckIn API",
        "description": "Lesson scheduling, attendance check-in and feed service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Token issuing and session management"},
        {"name": "Subjects", "description": "Subject catalog and seminar enrollment"},
        {"name": "Timetables", "description": "Weekly subject timetable slots"},
        {"name": "Lessons", "description": "Lesson scheduling and statistics"},
        {"name": "CheckIns", "description": "Attendance check-ins"},
        {"name": "Feeds", "description": "Cursor-paged comment, report and lesson feeds"},
        {"name": "Rooms", "description": "Room catalog and availability"}
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
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/subjects": {
            "get": {
                "tags": ["Subjects"],
                "summary": "List subjects",
                "parameters": [
                    {"name": "seminars", "in": "query", "type": "boolean"},
                    {"name": "mine", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Subjects"],
                "summary": "Create subject",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSubjectRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{id}": {
            "get": {
                "tags": ["Subjects"],
                "summary": "Get subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/subjects/{id}/enrollment": {
            "post": {
                "tags": ["Subjects"],
                "summary": "Toggle seminar enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Seminar full"},
                    "412": {"description": "Not a seminar or already started"}
                }
            }
        },
        "/subjects/{id}/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List a subject's weekly timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Timetables"],
                "summary": "Add a weekly timetable slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict"}
                }
            }
        },
        "/timetables/{id}": {
            "put": {
                "tags": ["Timetables"],
                "summary": "Update a weekly timetable slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict"}
                }
            }
        },
        "/subjects/{id}/lessons": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Schedule an extra lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLessonRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict"}
                }
            }
        },
        "/lessons/{id}": {
            "get": {
                "tags": ["Lessons"],
                "summary": "Get lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Lessons"],
                "summary": "Reschedule a lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLessonRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict"},
                    "412": {"description": "Lesson already started"}
                }
            },
            "delete": {
                "tags": ["Lessons"],
                "summary": "Delete an extra lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "412": {"description": "Only extra lessons can be deleted"}
                }
            }
        },
        "/lessons/{id}/stats": {
            "get": {
                "tags": ["Lessons"],
                "summary": "Attendance statistics for a lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LessonStats"}},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/checkins": {
            "post": {
                "tags": ["CheckIns"],
                "summary": "Submit a check-in for an open lesson",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitCheckInRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already checked in"},
                    "412": {"description": "Lesson not open"}
                }
            }
        },
        "/lessons/{id}/checkins": {
            "get": {
                "tags": ["CheckIns"],
                "summary": "List a lesson's check-ins",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons/{id}/comments": {
            "get": {
                "tags": ["Feeds"],
                "summary": "Page a lesson's comment wall",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "cursor", "in": "query", "type": "integer"},
                    {"name": "direction", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/FeedPage"}}
                }
            },
            "post": {
                "tags": ["Feeds"],
                "summary": "Post on a lesson's comment wall",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddCommentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not enrolled"}
                }
            }
        },
        "/forum/comments": {
            "get": {
                "tags": ["Feeds"],
                "summary": "Page the global forum",
                "parameters": [
                    {"name": "cursor", "in": "query", "type": "integer"},
                    {"name": "direction", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/FeedPage"}}
                }
            },
            "post": {
                "tags": ["Feeds"],
                "summary": "Post on the global forum",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddCommentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "get": {
                "tags": ["Feeds"],
                "summary": "Page the caller's reports",
                "parameters": [
                    {"name": "cursor", "in": "query", "type": "integer"},
                    {"name": "direction", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/FeedPage"}}
                }
            },
            "post": {
                "tags": ["Feeds"],
                "summary": "File a report",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons/feed": {
            "get": {
                "tags": ["Feeds"],
                "summary": "Page a subject's lessons by start time",
                "parameters": [
                    {"name": "subject_id", "in": "query", "required": true, "type": "integer"},
                    {"name": "cursor", "in": "query", "type": "integer"},
                    {"name": "direction", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/FeedPage"}}
                }
            }
        },
        "/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/free": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms free during an interval",
                "parameters": [
                    {"name": "start", "in": "query", "required": true, "type": "string"},
                    {"name": "end", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "CreateSubjectRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "first_date": {"type": "string"},
                "last_date": {"type": "string"},
                "is_seminar": {"type": "boolean"},
                "max_students": {"type": "integer"},
                "description": {"type": "string"}
            },
            "required": ["name", "first_date", "last_date"]
        },
        "TimetableRequest": {
            "type": "object",
            "properties": {
                "day": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "room_id": {"type": "integer"}
            },
            "required": ["day", "start_time", "end_time", "room_id"]
        },
        "CreateLessonRequest": {
            "type": "object",
            "properties": {
                "room_id": {"type": "integer"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            },
            "required": ["room_id", "start_time", "end_time"]
        },
        "SubmitCheckInRequest": {
            "type": "object",
            "properties": {
                "lesson_id": {"type": "integer"},
                "mark": {"type": "integer"},
                "comment": {"type": "string"},
                "headcount": {"type": "integer"}
            },
            "required": ["lesson_id"]
        },
        "AddCommentRequest": {
            "type": "object",
            "properties": {
                "body": {"type": "string"}
            },
            "required": ["body"]
        },
        "CreateReportRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "body": {"type": "string"}
            },
            "required": ["title", "body"]
        },
        "LessonStats": {
            "type": "object",
            "properties": {
                "lesson_id": {"type": "integer"},
                "enrolled_count": {"type": "integer"},
                "checkin_count": {"type": "integer"},
                "checkin_percent": {"type": "number"},
                "average_mark": {"type": "number"}
            }
        },
        "FeedPage": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"type": "object"}},
                "edge_id": {"type": "integer"}
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
