package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create campaigns table
			CREATE TABLE campaigns (
				id VARCHAR(255) PRIMARY KEY,
				name TEXT NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				position BIGSERIAL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_campaigns_position ON campaigns(position);
		`,
	}
}
