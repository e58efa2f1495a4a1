package main

// @title matchdesk API
// @version 1.0
// @description Ввод и проверка результатов матчей по раундам турнира.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Введите "Bearer" и JWT-токен через пробел.

func main() {
	Execute()
}
