package domain

// DefaultQuizID is served when an unknown quiz id is requested.
const DefaultQuizID = "q1"

// MissionPool is the static mission catalog rotations draw from.
func MissionPool() []Mission {
	return []Mission{
		{ID: "m1", Title: "Sentinela do Extintor", Description: "Localize o extintor de incêndio mais próximo e fotografe-o para validar o acesso livre.", Points: 150, Difficulty: DifficultyEasy, Icon: "🧯", Category: "Prevenção", RequiresProof: true},
		{ID: "m2", Title: "Estação de Trabalho", Description: "Fotografe sua mesa mostrando a altura do monitor e alinhamento do teclado para validarmos sua ergonomia.", Points: 300, Difficulty: DifficultyMedium, Icon: "🧘", Category: "Ergonomia", RequiresProof: true},
		{ID: "m3", Title: "Corredores Livres", Description: "Comprove que não há caixas ou fios obstruindo a passagem no seu setor com uma foto.", Points: 100, Difficulty: DifficultyEasy, Icon: "🏃", Category: "Organização", RequiresProof: true},
		{ID: "m4", Title: "Equipamento de Proteção", Description: "Tire uma selfie utilizando seus óculos de proteção ou protetor auricular para validação diária.", Points: 200, Difficulty: DifficultyEasy, Icon: "🥽", Category: "EPI", RequiresProof: true},
		{ID: "m5", Title: "Rota de Fuga", Description: "Localize e fotografe a sinalização de saída de emergência do seu setor.", Points: 150, Difficulty: DifficultyMedium, Icon: "🚪", Category: "Segurança", RequiresProof: true},
	}
}

// QuizCatalog returns the built-in quiz banks keyed by id.
func QuizCatalog() map[string]Quiz {
	return map[string]Quiz{
		"q1": {
			ID:          "q1",
			Title:       "Ergonomia: Fundamentos",
			Description: "Teste seus conhecimentos sobre a postura correta, ajuste de cadeiras, altura do monitor e pausas para evitar lesões.",
			Points:      500,
			Category:    "Ergonomia",
			Difficulty:  DifficultyEasy,
			Questions: []Question{
				{ID: 1, Text: "Qual deve ser a posição ideal do topo da tela do monitor em relação aos seus olhos?", Options: []string{"Acima da linha dos olhos", "Na altura ou ligeiramente abaixo da linha dos olhos", "Na altura do peito", "Não importa a altura"}, CorrectOption: 1, Explanation: "O topo da tela deve estar na altura dos olhos para evitar que você incline o pescoço para cima ou para baixo."},
				{ID: 2, Text: "Ao sentar, como seus pés devem estar posicionados?", Options: []string{"Cruzados um sobre o outro", "Apoiados totalmente no chão ou suporte", "Apenas as pontas dos pés tocando o chão", "Pendurados livremente"}, CorrectOption: 1, Explanation: "Pés bem apoiados garantem a distribuição do peso e evitam pressão excessiva nas coxas."},
				{ID: 3, Text: "Qual a frequência ideal para pausas curtas de alongamento?", Options: []string{"A cada 15 minutos", "A cada 50-60 minutos", "Apenas na hora do almoço", "A cada 4 horas"}, CorrectOption: 1, Explanation: "Pausas de 5 a 10 minutos a cada hora ajudam a relaxar a musculatura e prevenir fadiga crônica."},
			},
		},
		"q2": {
			ID:          "q2",
			Title:       "Organização e Postura",
			Description: "Aprenda a organizar sua mesa de trabalho e posicionar seus periféricos de forma a reduzir o esforço físico e a fadiga muscular.",
			Points:      600,
			Category:    "Ergonomia",
			Difficulty:  DifficultyMedium,
			Questions: []Question{
				{ID: 6, Text: "Qual organização da mesa é mais ergonômica?", Options: []string{"Objetos de uso frequente longe do alcance", "Mesa sempre vazia", "Itens de uso constante ao alcance das mãos", "Objetos empilhados para ganhar espaço"}, CorrectOption: 2, Explanation: "Manter itens frequentes ao alcance evita movimentos repetitivos de tronco e estiramento excessivo dos braços."},
				{ID: 7, Text: "Qual é o melhor posicionamento do teclado?", Options: []string{"Longe do corpo para esticar os braços", "Muito próximo ao corpo", "Centralizado e alinhado ao corpo", "Deslocado para a esquerda"}, CorrectOption: 2, Explanation: "O teclado deve estar centralizado para manter o alinhamento neutro dos ombros e punhos."},
				{ID: 8, Text: "Qual hábito reduz fadiga nos punhos ao usar teclado e mouse?", Options: []string{"Digitar com força", "Manter punhos alinhados e neutros", "Apoiar o peso do corpo sobre os punhos", "Trabalhar com o teclado no colo"}, CorrectOption: 1, Explanation: "A posição neutra reduz a compressão dos nervos e tendões do túnel do carpo."},
			},
		},
	}
}

// SeedAccount is a demo account written on first start.
type SeedAccount struct {
	User     User
	Password string
}

// SeedAccounts returns the demo accounts.
func SeedAccounts() []SeedAccount {
	return []SeedAccount{
		{
			User:     User{ID: "admin123", Email: "admin@worksafe.com", Name: "Administrador Sistema", Role: RoleAdmin, Score: 5000, Badges: []string{"Master"}, Sector: SectorSSMA},
			Password: "Admin@123",
		},
		{
			User:     User{ID: "worker1", Email: "joao@empresa.com", Name: "João Silva", Role: RoleWorker, Score: 1200, Badges: []string{"Seguro"}, Sector: SectorSSMA},
			Password: "User@1234",
		},
	}
}
