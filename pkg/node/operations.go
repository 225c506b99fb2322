package node

import (
	"net/http"
)

// DefaultResource is used when a request names no resource.
const DefaultResource = "subscriber"

type operation struct {
	run  handler
	desc OperationDescription
}

type resource struct {
	name        string
	value       string
	description string
	operations  []operation
}

var statusOptions = []FieldOption{
	{Name: "Active", Value: "active"},
	{Name: "Inactive", Value: "inactive"},
	{Name: "Unsubscribed", Value: "unsubscribed"},
	{Name: "Bounced", Value: "bounced"},
}

var sortOrderField = Field{
	Name: "sort_order", DisplayName: "Sort Order", Type: "options", Default: "desc",
	Options: []FieldOption{{Name: "Ascending", Value: "asc"}, {Name: "Descending", Value: "desc"}},
}

var pagingFields = []Field{
	{Name: "returnAll", DisplayName: "Return All", Type: "boolean", Default: false,
		Description: "Whether to return all results or only up to a given limit"},
	{Name: "limit", DisplayName: "Limit", Type: "number", Default: DefaultLimit,
		Description: "Max number of results to return"},
}

var subscriberFields = []Field{
	{Name: "first_name", DisplayName: "First Name", Type: "string"},
	{Name: "last_name", DisplayName: "Last Name", Type: "string"},
	{Name: "phone", DisplayName: "Phone", Type: "string"},
	{Name: "status", DisplayName: "Status", Type: "options", Default: "active", Options: statusOptions},
	{Name: "source", DisplayName: "Source", Type: "string", Default: "n8n", Description: "Source of the subscription"},
}

func withFields(base []Field, extra ...Field) []Field {
	out := make([]Field, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

var contactListField = Field{
	Name: "contactListId", DisplayName: "Contact List Name or ID", Type: "options",
	Required: true, LoadOptionsMethod: MethodGetLists,
}

var targetFields = []Field{
	{Name: "targetType", DisplayName: "Target Type", Type: "options", Required: true, Default: "list",
		Options: []FieldOption{
			{Name: "Contact List", Value: "list"},
			{Name: "Tags", Value: "tags"},
			{Name: "Subscriber IDs", Value: "subscribers"},
		}},
	contactListField,
	{Name: "tags", DisplayName: "Tags", Type: "string", Description: "Comma-separated list of tag IDs to target"},
	{Name: "subscriberIds", DisplayName: "Subscriber IDs", Type: "string", Placeholder: "1,2,3",
		Description: "Comma-separated list of subscriber IDs"},
}

var resources = []resource{
	{
		name: "Email", value: "email", description: "Send and manage email messages",
		operations: []operation{
			{emailGetStatus, OperationDescription{
				Name: "Get Status", Value: "getStatus", Action: "Get email status",
				Description: "Get the delivery status of an email",
				Method:      http.MethodGet, Endpoint: "/email/status/{emailId}",
				Fields: []Field{{Name: "emailId", DisplayName: "Email ID", Type: "string", Required: true}},
			}},
			{emailListMailboxes, OperationDescription{
				Name: "List Mailboxes", Value: "listMailboxes", Action: "List mailboxes",
				Description: "Get a list of available mailboxes",
				Method:      http.MethodGet, Endpoint: "/email/mailboxes",
			}},
			{emailSend, OperationDescription{
				Name: "Send", Value: "send", Action: "Send an email",
				Description: "Send a single email message",
				Method:      http.MethodPost, Endpoint: "/email/send",
				Fields: []Field{
					{Name: "emailAddress", DisplayName: "Email Address", Type: "string", Required: true, Placeholder: "user@example.com"},
					{Name: "subject", DisplayName: "Subject", Type: "string", Required: true},
					{Name: "content", DisplayName: "Content (HTML)", Type: "string", Required: true},
					{Name: "additionalFields", DisplayName: "Additional Fields", Type: "collection", Fields: []Field{
						{Name: "mailbox_id", DisplayName: "Mailbox Name or ID", Type: "options", LoadOptionsMethod: MethodGetMailboxes},
						{Name: "preheader", DisplayName: "Preheader", Type: "string"},
						{Name: "schedule_at", DisplayName: "Schedule At", Type: "dateTime"},
						{Name: "subscriber_id", DisplayName: "Subscriber ID", Type: "number"},
					}},
				},
			}},
			{emailSendBatch, OperationDescription{
				Name: "Send Batch", Value: "sendBatch", Action: "Send batch email",
				Description: "Send email to multiple recipients via list or tags",
				Method:      http.MethodPost, Endpoint: "/email/batch",
				Fields: withFields(targetFields,
					Field{Name: "subject", DisplayName: "Subject", Type: "string", Required: true},
					Field{Name: "content", DisplayName: "Content (HTML)", Type: "string", Required: true},
					Field{Name: "mailboxId", DisplayName: "Mailbox Name or ID", Type: "options", LoadOptionsMethod: MethodGetMailboxes},
					Field{Name: "scheduleAt", DisplayName: "Schedule At", Type: "dateTime"},
					Field{Name: "excludedListIds", DisplayName: "Excluded List Names or IDs", Type: "multiOptions", LoadOptionsMethod: MethodGetLists},
				),
			}},
		},
	},
	{
		name: "List", value: "list", description: "Manage contact lists",
		operations: []operation{
			{listGetMany, OperationDescription{
				Name: "Get Many", Value: "getMany", Action: "Get many lists",
				Description: "Get all contact lists",
				Method:      http.MethodGet, Endpoint: "/lists",
				Fields: []Field{{Name: "options", DisplayName: "Options", Type: "collection", Fields: []Field{
					{Name: "per_page", DisplayName: "Per Page", Type: "number", Default: 25},
					{Name: "sort_by", DisplayName: "Sort By", Type: "options", Default: "created_at",
						Options: []FieldOption{{Name: "Created At", Value: "created_at"}, {Name: "Name", Value: "name"}}},
					sortOrderField,
				}}},
			}},
			{listGet, OperationDescription{
				Name: "Get", Value: "get", Action: "Get a list",
				Description: "Get a single contact list",
				Method:      http.MethodGet, Endpoint: "/lists/{listId}",
				Fields: []Field{{Name: "listId", DisplayName: "Contact List Name or ID", Type: "options", Required: true, LoadOptionsMethod: MethodGetLists}},
			}},
			{listGetSubscribers, OperationDescription{
				Name: "Get Subscribers", Value: "getSubscribers", Action: "Get list subscribers",
				Description: "Get the subscribers of a contact list",
				Method:      http.MethodGet, Endpoint: "/lists/{listId}/subscribers", Paginated: true,
				Fields: withFields(pagingFields,
					Field{Name: "listId", DisplayName: "Contact List Name or ID", Type: "options", Required: true, LoadOptionsMethod: MethodGetLists},
					Field{Name: "options", DisplayName: "Options", Type: "collection", Fields: []Field{
						{Name: "status", DisplayName: "Status", Type: "options", Default: "active", Options: statusOptions},
						{Name: "sort_by", DisplayName: "Sort By", Type: "options", Default: "created_at",
							Options: []FieldOption{{Name: "Created At", Value: "created_at"}, {Name: "Email", Value: "email"}}},
						sortOrderField,
					}},
				),
			}},
		},
	},
	{
		name: "SMS", value: "sms", description: "Send and manage SMS messages",
		operations: []operation{
			{smsGetStatus, OperationDescription{
				Name: "Get Status", Value: "getStatus", Action: "Get SMS status",
				Description: "Get the status of a sent SMS message",
				Method:      http.MethodGet, Endpoint: "/sms/status/{smsId}",
				Fields: []Field{{Name: "smsId", DisplayName: "SMS ID", Type: "string", Required: true}},
			}},
			{smsListProviders, OperationDescription{
				Name: "List Providers", Value: "listProviders", Action: "List SMS providers",
				Description: "Get a list of available SMS providers",
				Method:      http.MethodGet, Endpoint: "/sms/providers",
			}},
			{smsSend, OperationDescription{
				Name: "Send", Value: "send", Action: "Send an SMS",
				Description: "Send a single SMS message",
				Method:      http.MethodPost, Endpoint: "/sms/send",
				Fields: []Field{
					{Name: "smsContactListId", DisplayName: "Contact List Name or ID", Type: "options", LoadOptionsMethod: MethodGetLists,
						Description: "Optional list to pick a subscriber phone number from"},
					{Name: "phoneNumber", DisplayName: "Phone Number", Type: "string", Required: true, Placeholder: "+48123456789",
						LoadOptionsMethod: MethodGetSubscribersWithPhone},
					{Name: "message", DisplayName: "Message", Type: "string", Required: true},
					{Name: "additionalFields", DisplayName: "Additional Fields", Type: "collection", Fields: []Field{
						{Name: "provider_id", DisplayName: "Provider ID", Type: "number"},
						{Name: "sender_id", DisplayName: "Sender ID", Type: "string"},
						{Name: "schedule_at", DisplayName: "Schedule At", Type: "dateTime"},
						{Name: "subscriber_id", DisplayName: "Subscriber ID", Type: "number"},
					}},
				},
			}},
			{smsSendBatch, OperationDescription{
				Name: "Send Batch", Value: "sendBatch", Action: "Send batch SMS",
				Description: "Send SMS messages to a list or tag group",
				Method:      http.MethodPost, Endpoint: "/sms/batch",
				Fields: []Field{
					{Name: "message", DisplayName: "Message", Type: "string", Required: true},
					{Name: "targetType", DisplayName: "Target Type", Type: "options", Required: true, Default: "list",
						Options: []FieldOption{{Name: "Contact List", Value: "list"}, {Name: "Tags", Value: "tags"}}},
					contactListField,
					{Name: "tags", DisplayName: "Tags", Type: "string"},
					{Name: "additionalFields", DisplayName: "Additional Fields", Type: "collection", Fields: []Field{
						{Name: "provider_id", DisplayName: "Provider ID", Type: "number"},
						{Name: "sender_id", DisplayName: "Sender ID", Type: "string"},
					}},
				},
			}},
		},
	},
	{
		name: "Subscriber", value: "subscriber", description: "Manage subscribers",
		operations: []operation{
			{subscriberGetMany, OperationDescription{
				Name: "Get Many", Value: "getMany", Action: "Get many subscribers",
				Description: "Get all subscribers",
				Method:      http.MethodGet, Endpoint: "/subscribers", Paginated: true,
				Fields: withFields(pagingFields,
					Field{Name: "contactListId", DisplayName: "Contact List Name or ID", Type: "options", LoadOptionsMethod: MethodGetLists},
					Field{Name: "options", DisplayName: "Options", Type: "collection", Fields: []Field{
						{Name: "status", DisplayName: "Status", Type: "options", Options: statusOptions},
						{Name: "sort_by", DisplayName: "Sort By", Type: "options", Default: "created_at",
							Options: []FieldOption{{Name: "Created At", Value: "created_at"}, {Name: "Email", Value: "email"}}},
						sortOrderField,
					}},
				),
			}},
			{subscriberGet, OperationDescription{
				Name: "Get", Value: "get", Action: "Get a subscriber",
				Description: "Get a single subscriber by ID",
				Method:      http.MethodGet, Endpoint: "/subscribers/{subscriberId}",
				Fields: []Field{{Name: "subscriberId", DisplayName: "Subscriber ID", Type: "number", Required: true}},
			}},
			{subscriberGetByEmail, OperationDescription{
				Name: "Get by Email", Value: "getByEmail", Action: "Get a subscriber by email",
				Description: "Find a subscriber by their email address",
				Method:      http.MethodGet, Endpoint: "/subscribers/by-email/{email}",
				Fields: []Field{{Name: "email", DisplayName: "Email", Type: "string", Required: true, Placeholder: "name@email.com"}},
			}},
			{subscriberCreate, OperationDescription{
				Name: "Create", Value: "create", Action: "Create a subscriber",
				Description: "Create a new subscriber",
				Method:      http.MethodPost, Endpoint: "/subscribers",
				Fields: []Field{
					{Name: "email", DisplayName: "Email", Type: "string", Required: true, Placeholder: "name@email.com"},
					contactListField,
					{Name: "additionalFields", DisplayName: "Additional Fields", Type: "collection", Fields: subscriberFields},
				},
			}},
			{subscriberUpdate, OperationDescription{
				Name: "Update", Value: "update", Action: "Update a subscriber",
				Description: "Update an existing subscriber",
				Method:      http.MethodPut, Endpoint: "/subscribers/{subscriberId}",
				Fields: []Field{
					{Name: "subscriberId", DisplayName: "Subscriber ID", Type: "number", Required: true},
					{Name: "updateFields", DisplayName: "Update Fields", Type: "collection",
						Fields: withFields([]Field{{Name: "email", DisplayName: "Email", Type: "string"}}, subscriberFields...)},
				},
			}},
			{subscriberDelete, OperationDescription{
				Name: "Delete", Value: "delete", Action: "Delete a subscriber",
				Description: "Delete a subscriber (soft delete)",
				Method:      http.MethodDelete, Endpoint: "/subscribers/{subscriberId}",
				Fields: []Field{{Name: "subscriberId", DisplayName: "Subscriber ID", Type: "number", Required: true}},
			}},
		},
	},
	{
		name: "Tag", value: "tag", description: "Manage tags",
		operations: []operation{
			{tagGetMany, OperationDescription{
				Name: "Get Many", Value: "getMany", Action: "Get many tags",
				Description: "Get all tags",
				Method:      http.MethodGet, Endpoint: "/tags",
				Fields: []Field{{Name: "options", DisplayName: "Options", Type: "collection", Fields: []Field{
					{Name: "per_page", DisplayName: "Per Page", Type: "number", Default: 50},
					{Name: "sort_by", DisplayName: "Sort By", Type: "options", Default: "name",
						Options: []FieldOption{{Name: "Name", Value: "name"}, {Name: "Created At", Value: "created_at"}}},
					{Name: "sort_order", DisplayName: "Sort Order", Type: "options", Default: "asc",
						Options: []FieldOption{{Name: "Ascending", Value: "asc"}, {Name: "Descending", Value: "desc"}}},
				}}},
			}},
			{tagGet, OperationDescription{
				Name: "Get", Value: "get", Action: "Get a tag",
				Description: "Get a single tag by ID",
				Method:      http.MethodGet, Endpoint: "/tags/{tagId}",
				Fields: []Field{{Name: "tagId", DisplayName: "Tag ID", Type: "number", Required: true}},
			}},
		},
	},
}

var defaultOperations = map[string]string{
	"email":      "send",
	"list":       "getMany",
	"sms":        "send",
	"subscriber": "getMany",
	"tag":        "getMany",
}

// operations indexes resources by value and operation value.
var operations = func() map[string]map[string]operation {
	idx := make(map[string]map[string]operation, len(resources))
	for _, r := range resources {
		ops := make(map[string]operation, len(r.operations))
		for _, op := range r.operations {
			ops[op.desc.Value] = op
		}
		idx[r.value] = ops
	}
	return idx
}()
