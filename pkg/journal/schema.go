package journal

// Schema contains the SQL statements to create the command journal.
const Schema = `
-- One row per handled command datagram
CREATE TABLE IF NOT EXISTS commands (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    command_id  INTEGER NOT NULL,
    type        INTEGER NOT NULL,
    target      TEXT NOT NULL,
    operator    TEXT NOT NULL,
    result      INTEGER NOT NULL,
    message     TEXT NOT NULL,
    handled_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_commands_command_id ON commands(command_id);
CREATE INDEX IF NOT EXISTS idx_commands_handled_at ON commands(handled_at);
`

// memoryDSN is the DSN of a private in-memory database.
const memoryDSN = ":memory:"

// DefaultRecentLimit caps Recent when called with a non-positive limit.
const DefaultRecentLimit = 100
