package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FileZone API",
        "description": "Zone-scoped file metadata store for the campus platform",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Entries", "description": "Path index over storage zones"},
        {"name": "ViewState", "description": "View counters, folder expansion, clipboard, last visits"},
        {"name": "Search", "description": "Cross-zone file name search"},
        {"name": "Sizes", "description": "Zone size snapshots, roll-ups and usage reports"},
        {"name": "Lifecycle", "description": "Zone teardown for removed hierarchy entities"}
    ],
    "paths": {
        "/entries": {
            "post": {
                "tags": ["Entries"],
                "summary": "Register a file or folder in a zone",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddEntryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Invalid zone or path"},
                    "409": {"description": "Duplicate path with requireUnique"}
                }
            }
        },
        "/entries/resolve": {
            "get": {
                "tags": ["Entries"],
                "summary": "Resolve an entry by zone and path",
                "parameters": [
                    {"name": "zoneKind", "in": "query", "type": "integer", "required": true},
                    {"name": "ownerCode", "in": "query", "type": "integer", "required": true},
                    {"name": "secondaryOwner", "in": "query", "type": "integer"},
                    {"name": "path", "in": "query", "type": "string", "required": true},
                    {"name": "publicOnly", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "No entry at path"}
                }
            }
        },
        "/entries/{id}": {
            "get": {
                "tags": ["Entries"],
                "summary": "Resolve an entry by ID",
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Entry not found"}
                }
            }
        },
        "/entries/{id}/visibility": {
            "put": {
                "tags": ["Entries"],
                "summary": "Update the public flag and license of one entry",
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetVisibilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Entry not found"}
                }
            }
        },
        "/entries/rename": {
            "post": {
                "tags": ["Entries"],
                "summary": "Rename a path or a whole subtree",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RenameRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/entries/remove": {
            "post": {
                "tags": ["Entries"],
                "summary": "Remove a path or a whole subtree",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RemoveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/entries/hidden": {
            "put": {
                "tags": ["Entries"],
                "summary": "Flag or unflag a path as hidden",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/entries/hidden-check": {
            "get": {
                "tags": ["Entries"],
                "summary": "Check whether a path or any ancestor is hidden",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/entries/public-check": {
            "get": {
                "tags": ["Entries"],
                "summary": "Check whether a folder contains any visible public entry",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/entries/licenses": {
            "get": {
                "tags": ["Entries"],
                "summary": "Bucket public-zone entries by content license",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/publishers/{id}/count": {
            "get": {
                "tags": ["Entries"],
                "summary": "Count entries attributed to a publisher",
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "publicOnly", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/views": {
            "post": {
                "tags": ["ViewState"],
                "summary": "Count one view of an entry",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/views/{id}": {
            "get": {
                "tags": ["ViewState"],
                "summary": "View counts split by authentication",
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/folders/expand": {
            "post": {
                "tags": ["ViewState"],
                "summary": "Mark a folder expanded",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/folders/contract": {
            "post": {
                "tags": ["ViewState"],
                "summary": "Contract a folder and everything beneath it",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/folders/expanded": {
            "get": {
                "tags": ["ViewState"],
                "summary": "Check whether a folder is shown open",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/clipboard": {
            "get": {
                "tags": ["ViewState"],
                "summary": "Read the clipboard slot",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "put": {
                "tags": ["ViewState"],
                "summary": "Store the pending cut/copy source",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["ViewState"],
                "summary": "Empty the clipboard",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/visits": {
            "get": {
                "tags": ["ViewState"],
                "summary": "When the caller last opened a zone",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["ViewState"],
                "summary": "Record a zone visit",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/search/public": {
            "get": {
                "tags": ["Search"],
                "summary": "Search public files by name",
                "parameters": [
                    {"name": "q", "in": "query", "type": "string", "required": true},
                    {"name": "level", "in": "query", "type": "string"},
                    {"name": "code", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/search/mine": {
            "get": {
                "tags": ["Search"],
                "summary": "Search the caller's own files by name",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/sizes/snapshot": {
            "get": {
                "tags": ["Sizes"],
                "summary": "Stored size snapshot of one zone",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Zone never computed"}
                }
            }
        },
        "/sizes/rollup": {
            "get": {
                "tags": ["Sizes"],
                "summary": "Sum size snapshots over a hierarchy scope",
                "parameters": [
                    {"name": "level", "in": "query", "type": "string"},
                    {"name": "code", "in": "query", "type": "integer"},
                    {"name": "group", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/sizes/recompute": {
            "post": {
                "tags": ["Sizes"],
                "summary": "Rebuild the size snapshot of one zone",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/sizes/reports": {
            "post": {
                "tags": ["Sizes"],
                "summary": "Render a usage report and return a signed download token",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/sizes/reports/download": {
            "get": {
                "tags": ["Sizes"],
                "summary": "Download a previously exported usage report",
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/lifecycle/purge-owner": {
            "post": {
                "tags": ["Lifecycle"],
                "summary": "Purge every zone owned by a removed hierarchy entity",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Purge stalled"}
                }
            }
        },
        "/lifecycle/purge-user": {
            "post": {
                "tags": ["Lifecycle"],
                "summary": "Remove one user's footprint from a shared zone",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Purge stalled"}
                }
            }
        },
        "/lifecycle/verify-empty": {
            "get": {
                "tags": ["Lifecycle"],
                "summary": "Check a purged zone for leftovers",
                "responses": {
                    "200": {"description": "OK"},
                    "500": {"description": "Leftovers detected"}
                }
            }
        }
    },
    "definitions": {
        "ZoneRef": {
            "type": "object",
            "properties": {
                "kind": {"type": "integer"},
                "ownerCode": {"type": "integer"},
                "secondaryOwner": {"type": "integer"}
            }
        },
        "AddEntryRequest": {
            "type": "object",
            "properties": {
                "zone": {"$ref": "#/definitions/ZoneRef"},
                "path": {"type": "string"},
                "kind": {"type": "string", "enum": ["folder", "file", "unresolved"]},
                "publisherId": {"type": "integer"},
                "public": {"type": "boolean"},
                "license": {"type": "integer"},
                "requireUnique": {"type": "boolean"}
            }
        },
        "RenameRequest": {
            "type": "object",
            "properties": {
                "zone": {"$ref": "#/definitions/ZoneRef"},
                "oldPath": {"type": "string"},
                "newPath": {"type": "string"},
                "subtree": {"type": "boolean"}
            }
        },
        "RemoveRequest": {
            "type": "object",
            "properties": {
                "zone": {"$ref": "#/definitions/ZoneRef"},
                "path": {"type": "string"},
                "subtree": {"type": "boolean"}
            }
        },
        "SetVisibilityRequest": {
            "type": "object",
            "properties": {
                "public": {"type": "boolean"},
                "license": {"type": "integer"}
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
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
