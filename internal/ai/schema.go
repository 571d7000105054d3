package ai

// querySpecSchema — JSON Schema для выправленного объекта query.
// Интент намеренно не ограничен enum: неизвестный интент уходит в
// fallback-ветку диспетчера, а не валит запрос на валидации.
const querySpecSchema = `{
  "type": "object",
  "required": ["intent", "time_range", "params"],
  "properties": {
    "is_banking_domain": {"type": ["boolean", "null"]},
    "intent": {"type": "string", "minLength": 1},
    "time_range": {
      "type": "object",
      "required": ["mode"],
      "properties": {
        "mode": {"type": "string", "enum": ["preset", "relative", "custom"]},
        "preset": {"type": ["string", "null"], "enum": ["ytd", "last_month", null]},
        "last": {"type": ["integer", "null"]},
        "unit": {"type": ["string", "null"], "enum": ["days", "weeks", "months", "years", null]},
        "start": {"type": ["string", "null"]},
        "end": {"type": ["string", "null"]}
      }
    },
    "params": {"type": "object"}
  }
}`
